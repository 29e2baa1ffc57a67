// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package fallback produces the safe reply shown when validation
// rejects an answer. The fallback never contains any part of the
// rejected answer.
package fallback

import (
	"strings"
	"unicode/utf8"
)

// maxQuestionExcerpt bounds how much of the question is echoed back,
// in runes.
const maxQuestionExcerpt = 120

// template holds the localized building blocks of a fallback reply.
// body and noExcerpt both open with the language's apology phrase,
// limitation explains that the knowledge base only updates
// periodically, and suggest lists concrete next steps.
type template struct {
	body       string // %s is the question excerpt
	noExcerpt  string
	limitation string
	suggest    string
}

// templates by base language code. English is the default.
var templates = map[string]template{
	"en": {
		body:       "I apologize, but I could not verify an answer to your question about \"%s\".",
		noExcerpt:  "I apologize, but I could not verify an answer to your question.",
		limitation: "My knowledge base is updated periodically, so very recent information may not be available to me yet.",
		suggest:    "You could rephrase the question or provide more context, try again later once my knowledge base has been refreshed, or ask a related question I may be able to verify.",
	},
	"de": {
		body:       "Es tut mir leid, aber ich konnte keine verlässliche Antwort auf Ihre Frage zu \"%s\" finden.",
		noExcerpt:  "Es tut mir leid, aber ich konnte keine verlässliche Antwort auf Ihre Frage finden.",
		limitation: "Meine Wissensbasis wird nur in regelmäßigen Abständen aktualisiert, daher liegen mir sehr aktuelle Informationen möglicherweise noch nicht vor.",
		suggest:    "Sie könnten die Frage umformulieren oder mehr Kontext geben, es später nach der nächsten Aktualisierung erneut versuchen oder eine verwandte Frage stellen, die ich vielleicht beantworten kann.",
	},
	"fr": {
		body:       "Je suis désolé, mais je n'ai pas pu vérifier une réponse à votre question sur \"%s\".",
		noExcerpt:  "Je suis désolé, mais je n'ai pas pu vérifier une réponse à votre question.",
		limitation: "Ma base de connaissances n'est mise à jour que périodiquement, les informations très récentes peuvent donc ne pas encore m'être accessibles.",
		suggest:    "Vous pourriez reformuler la question ou donner plus de contexte, réessayer plus tard après la prochaine mise à jour, ou poser une question connexe que je pourrais vérifier.",
	},
	"es": {
		body:       "Lo siento, pero no pude verificar una respuesta a su pregunta sobre \"%s\".",
		noExcerpt:  "Lo siento, pero no pude verificar una respuesta a su pregunta.",
		limitation: "Mi base de conocimientos se actualiza periódicamente, por lo que es posible que la información muy reciente aún no esté disponible.",
		suggest:    "Podría reformular la pregunta o dar más contexto, intentarlo de nuevo más tarde tras la próxima actualización, o hacer una pregunta relacionada que quizá pueda verificar.",
	},
	"ja": {
		body:       "申し訳ありませんが、「%s」に関するご質問への回答を検証できませんでした。",
		noExcerpt:  "申し訳ありませんが、ご質問への回答を検証できませんでした。",
		limitation: "私の知識ベースは定期的にしか更新されないため、ごく最近の情報はまだ反映されていない可能性があります。",
		suggest:    "質問を言い換えるか文脈を補っていただくか、知識ベースの更新後に改めてお試しいただくか、検証できそうな関連する質問をお尋ねください。",
	},
	"zh": {
		body:       "很抱歉，我无法核实您关于“%s”的问题的答案。",
		noExcerpt:  "很抱歉，我无法核实您的问题的答案。",
		limitation: "我的知识库只会定期更新，因此最新的信息可能尚未收录。",
		suggest:    "您可以换一种方式提问或补充背景信息，等知识库更新后稍后再试，或者提出一个我或许能够核实的相关问题。",
	},
}

// Generator builds localized fallback replies.
type Generator struct{}

// NewGenerator returns a Generator.
func NewGenerator() *Generator { return &Generator{} }

// Generate returns the safe reply for a rejected answer in the given
// language, falling back to English for unsupported codes. The reply
// is never empty and never contains the rejected answer.
func (g *Generator) Generate(question, language string) string {
	tmpl, ok := templates[baseLanguage(language)]
	if !ok {
		tmpl = templates["en"]
	}

	excerpt := questionExcerpt(question)
	var b strings.Builder
	if excerpt == "" {
		b.WriteString(tmpl.noExcerpt)
	} else {
		b.WriteString(strings.Replace(tmpl.body, "%s", excerpt, 1))
	}
	b.WriteString(" ")
	b.WriteString(tmpl.limitation)
	b.WriteString(" ")
	b.WriteString(tmpl.suggest)
	return b.String()
}

// Supported reports whether a language has its own templates.
func Supported(language string) bool {
	_, ok := templates[baseLanguage(language)]
	return ok
}

func baseLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

// questionExcerpt sanitizes and bounds the question before it is
// echoed back.
func questionExcerpt(question string) string {
	q := strings.Join(strings.Fields(question), " ")
	q = strings.Trim(q, "\"'")
	if utf8.RuneCountInString(q) > maxQuestionExcerpt {
		runes := []rune(q)
		q = string(runes[:maxQuestionExcerpt]) + "…"
	}
	return q
}
