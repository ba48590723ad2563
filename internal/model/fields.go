package model

import (
	"encoding/json"
	"time"
)

// Pain categories a prospect can name. Free text that matches none of these
// collapses to PainOther.
const (
	PainPostSale   = "pos_nao_venda"
	PainMktSales   = "integracao_mkt_vendas"
	PainAutomation = "automacao"
	PainMessaging  = "mensageria"
	PainOther      = "outro"
)

// ValidPain reports whether v is one of the fixed pain categories.
func ValidPain(v string) bool {
	switch v {
	case PainPostSale, PainMktSales, PainAutomation, PainMessaging, PainOther:
		return true
	}
	return false
}

// Fields is the qualification record accumulated over one conversation.
// It lives in the messaging platform's per-conversation custom attributes;
// this service keeps no store of its own for it. Each field is written at
// most once and never overwritten afterwards — the flow only ever fills the
// first empty field in declaration order.
//
// JSON keys are the attribute names the original product established; they
// are part of the external contract with the Chatwoot account.
type Fields struct {
	FirstName string     `json:"nome,omitempty"`
	LastName  string     `json:"sobrenome,omitempty"`
	Company   string     `json:"empresa,omitempty"`
	Role      string     `json:"cargo,omitempty"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"celular,omitempty"`
	TeamSize  *int       `json:"time_vendas,omitempty"`
	Tools     string     `json:"ferramentas,omitempty"`
	MainPain  string     `json:"dor_principal,omitempty"`
	Slot1     *time.Time `json:"horario1,omitempty"`
	Slot2     *time.Time `json:"horario2,omitempty"`
}

// FieldsFromAttributes decodes a Chatwoot custom_attributes map. Unknown or
// malformed attributes are ignored rather than failing the request: an
// unreadable attribute blob is treated the same as a fresh conversation.
func FieldsFromAttributes(attrs map[string]any) Fields {
	var f Fields
	if len(attrs) == 0 {
		return f
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return f
	}
	_ = json.Unmarshal(data, &f)
	return f
}

// ToAttributes encodes the populated fields as a custom_attributes map.
func (f Fields) ToAttributes() map[string]any {
	data, err := json.Marshal(f)
	if err != nil {
		return map[string]any{}
	}
	attrs := map[string]any{}
	_ = json.Unmarshal(data, &attrs)
	return attrs
}

// FullName joins first and last name for reply interpolation.
func (f Fields) FullName() string {
	switch {
	case f.FirstName != "" && f.LastName != "":
		return f.FirstName + " " + f.LastName
	case f.FirstName != "":
		return f.FirstName
	default:
		return f.LastName
	}
}

// HasContact reports whether at least one contact channel is known.
func (f Fields) HasContact() bool {
	return f.Email != "" || f.Phone != ""
}
