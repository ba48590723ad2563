// Package flow implements the qualification state machine: a pure function
// from (collected fields, latest utterance) to (updated fields, reply,
// action). No I/O, no hidden state — everything it knows arrives as
// arguments, which is what keeps concurrent webhook handlers safe.
package flow

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"dom360.app/sdrbot/internal/model"
)

const (
	replyGreeting    = "Olá! Sou o Mr. DOM, do DOM360. Para te direcionar melhor, como você se chama e qual é a sua empresa?"
	replyAskLastName = "Obrigado! Poderia me informar seu sobrenome e o nome da empresa?"
	replyAskCompany  = "Qual é o nome da empresa?"
	replyAskContact  = "Pode me passar seu e-mail e celular/WhatsApp? Pode ser um dos dois."
	replyNeedContact = "Para prosseguir, preciso de e-mail ou celular/WhatsApp. Pode enviar um deles?"
	replyAskEmail    = "Obrigado! Qual é o seu e-mail?"
	replyAskPhone    = "Perfeito. Pode compartilhar seu celular/WhatsApp (BR)?"
	replyAskTeam     = "Quantas pessoas estão no time de vendas? (número)"
	replyAskTools    = "Obrigado! Quais ferramentas usam hoje? (CRM, automação, mensageria)"
	replyAskPain     = "Qual dessas descreve melhor sua principal dor? pos_nao_venda, integracao_mkt_vendas, automacao, mensageria ou outro?"
	replyHandoff     = "Perfeito! Obrigado pelas informações. Vou direcionar para nosso especialista."
	replyIdle        = "Como posso ajudar?"
)

// Transition advances the flow by one user message. Fields are collected in
// a fixed order; a populated field is never rewritten, and the reply always
// asks for the first gap in that order. There is deliberately no state
// regression: a prospect who contradicts an earlier answer keeps the
// original value.
func Transition(f model.Fields, userText string) (model.Fields, string, model.Action) {
	text := strings.TrimSpace(userText)

	// 1) First and last name from whitespace tokens.
	if f.FirstName == "" || f.LastName == "" {
		words := strings.Fields(text)
		if len(words) == 0 && f.FirstName == "" {
			return f, replyGreeting, model.ActionNone
		}
		if len(words) > 0 {
			if f.FirstName == "" {
				f.FirstName = title(words[0])
			}
			if f.LastName == "" && len(words) > 1 {
				f.LastName = title(words[len(words)-1])
			}
		}
		if f.LastName == "" {
			return f, replyAskLastName, model.ActionNone
		}
		if f.Company == "" {
			return f, fmt.Sprintf("Perfeito, %s. %s", f.FullName(), replyAskCompany), model.ActionNone
		}
	}

	// 2) Company is whatever the prospect sends.
	if f.Company == "" {
		if text == "" {
			return f, replyAskCompany, model.ActionNone
		}
		f.Company = text
		return f, replyAskContact, model.ActionNone
	}

	// 3) Contact: one of e-mail or phone unblocks the flow.
	if f.Email == "" && f.Phone == "" {
		switch {
		case looksLikeEmail(text):
			f.Email = text
		case containsDigit(text):
			f.Phone = text
		}
		if f.Email == "" && f.Phone == "" {
			return f, replyNeedContact, model.ActionNone
		}
		if f.Email == "" {
			return f, replyAskEmail, model.ActionNone
		}
		return f, replyAskPhone, model.ActionNone
	}

	// One contact channel is known; capture the other when the message
	// unambiguously is one. The strict phone shape keeps later free-text
	// answers ("7 vendedores") from being swallowed as a phone number.
	if f.Email == "" && looksLikeEmail(text) {
		f.Email = text
		return f, nextQuestion(f), model.ActionNone
	}
	if f.Phone == "" && looksLikePhone(text) {
		f.Phone = text
		return f, nextQuestion(f), model.ActionNone
	}

	// 4) Sales-team size: digits anywhere in the message.
	if f.TeamSize == nil {
		if digits := digitsOf(text); digits != "" {
			if n, err := strconv.Atoi(digits); err == nil && n > 0 {
				f.TeamSize = &n
			}
		}
		if f.TeamSize == nil {
			return f, replyAskTeam, model.ActionNone
		}
		return f, replyAskTools, model.ActionNone
	}

	// 5) Current tooling, free text.
	if f.Tools == "" {
		if text == "" {
			return f, replyAskTools, model.ActionNone
		}
		f.Tools = text
		return f, replyAskPain, model.ActionNone
	}

	// 6) Main pain. Always terminal: whatever the prospect says, normalize
	// it, fall back to "outro", and hand the conversation off.
	if f.MainPain == "" {
		v := strings.ReplaceAll(strings.ToLower(text), " ", "_")
		if !model.ValidPain(v) {
			v = model.PainOther
		}
		f.MainPain = v
		return f, replyHandoff, model.ActionHandoff
	}

	// 7) Fully qualified; nothing left to collect.
	return f, replyIdle, model.ActionNone
}

// nextQuestion asks for the first gap after the contact step.
func nextQuestion(f model.Fields) string {
	switch {
	case f.TeamSize == nil:
		return replyAskTeam
	case f.Tools == "":
		return replyAskTools
	case f.MainPain == "":
		return replyAskPain
	}
	return replyIdle
}

func looksLikeEmail(s string) bool {
	return strings.Contains(s, "@") &&
		strings.Contains(s, ".") &&
		!strings.ContainsFunc(s, unicode.IsSpace)
}

// looksLikePhone matches digits plus common phone punctuation only.
func looksLikePhone(s string) bool {
	if !containsDigit(s) {
		return false
	}
	for _, r := range s {
		if unicode.IsDigit(r) || r == '+' || r == '-' || r == '(' || r == ')' || r == '.' || r == ' ' {
			continue
		}
		return false
	}
	return true
}

func containsDigit(s string) bool {
	return strings.ContainsFunc(s, unicode.IsDigit)
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func title(s string) string {
	r := []rune(strings.ToLower(s))
	if len(r) == 0 {
		return ""
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
