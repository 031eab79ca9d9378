package openai

import (
	"fmt"

	"github.com/garyjia/dmt-records/internal/domain/entity"
)

var languageNames = map[entity.Language]string{
	entity.LangEN: "English",
	entity.LangES: "Spanish",
	entity.LangZH: "Simplified Chinese",
}

const systemPrompt = "You translate manufacturing quality reports. " +
	"Keep part numbers, serial numbers, codes and units unchanged. " +
	"Reply with the translation only, without quotes or commentary."

func buildTranslationPrompt(text string, source, target entity.Language) string {
	return fmt.Sprintf("Translate the following %s text into %s:\n\n%s",
		languageNames[source], languageNames[target], text)
}
