package flow_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dom360.app/sdrbot/internal/flow"
	"dom360.app/sdrbot/internal/model"
)

var _ = Describe("Transition", func() {
	It("qualifies a prospect end to end", func() {
		f := model.Fields{}
		var reply string
		var action model.Action

		f, reply, action = flow.Transition(f, "Maria Lopes")
		Expect(f.FirstName).To(Equal("Maria"))
		Expect(f.LastName).To(Equal("Lopes"))
		Expect(reply).To(ContainSubstring("empresa"))
		Expect(action).To(Equal(model.ActionNone))

		f, reply, action = flow.Transition(f, "Acme Ltda")
		Expect(f.Company).To(Equal("Acme Ltda"))
		Expect(reply).To(ContainSubstring("e-mail e celular"))
		Expect(action).To(Equal(model.ActionNone))

		f, reply, _ = flow.Transition(f, "maria@acme.com")
		Expect(f.Email).To(Equal("maria@acme.com"))
		Expect(reply).To(ContainSubstring("celular"))

		f, reply, _ = flow.Transition(f, "+551199999999")
		Expect(f.Phone).To(Equal("+551199999999"))
		Expect(reply).To(ContainSubstring("time de vendas"))

		f, reply, _ = flow.Transition(f, "7 vendedores")
		Expect(f.TeamSize).To(HaveValue(Equal(7)))
		Expect(reply).To(ContainSubstring("ferramentas"))

		f, reply, _ = flow.Transition(f, "Pipedrive e planilhas")
		Expect(f.Tools).To(Equal("Pipedrive e planilhas"))
		Expect(reply).To(ContainSubstring("dor"))

		f, reply, action = flow.Transition(f, "Nenhum CRM integrado com marketing")
		Expect(f.MainPain).To(Equal(model.PainOther))
		Expect(action).To(Equal(model.ActionHandoff))
		Expect(reply).To(ContainSubstring("especialista"))
	})

	It("greets on an empty first message", func() {
		_, reply, action := flow.Transition(model.Fields{}, "   ")
		Expect(reply).To(ContainSubstring("Mr. DOM"))
		Expect(action).To(Equal(model.ActionNone))
	})

	It("asks for the last name when only one word arrives", func() {
		f, reply, _ := flow.Transition(model.Fields{}, "maria")
		Expect(f.FirstName).To(Equal("Maria"))
		Expect(f.LastName).To(BeEmpty())
		Expect(reply).To(ContainSubstring("sobrenome"))
	})

	It("never rewrites a populated field", func() {
		f := model.Fields{FirstName: "Maria", LastName: "Lopes", Company: "Acme"}
		f2, _, _ := flow.Transition(f, "João Silva da Outra Empresa")
		Expect(f2.FirstName).To(Equal("Maria"))
		Expect(f2.LastName).To(Equal("Lopes"))
		Expect(f2.Company).To(Equal("Acme"))
	})

	It("accepts either contact channel", func() {
		f := model.Fields{FirstName: "Maria", LastName: "Lopes", Company: "Acme"}

		byPhone, reply, _ := flow.Transition(f, "11 99999-9999")
		Expect(byPhone.Phone).To(Equal("11 99999-9999"))
		Expect(byPhone.Email).To(BeEmpty())
		Expect(reply).To(ContainSubstring("e-mail"))

		byEmail, reply, _ := flow.Transition(f, "maria@acme.com")
		Expect(byEmail.Email).To(Equal("maria@acme.com"))
		Expect(byEmail.Phone).To(BeEmpty())
		Expect(reply).To(ContainSubstring("celular"))
	})

	It("insists until one contact channel arrives", func() {
		f := model.Fields{FirstName: "Maria", LastName: "Lopes", Company: "Acme"}
		f2, reply, _ := flow.Transition(f, "prefiro não informar")
		Expect(f2.Email).To(BeEmpty())
		Expect(f2.Phone).To(BeEmpty())
		Expect(reply).To(ContainSubstring("preciso de e-mail ou celular"))
	})

	It("does not mistake a free-text team answer for a phone number", func() {
		f := model.Fields{FirstName: "Maria", LastName: "Lopes", Company: "Acme", Email: "maria@acme.com"}
		f2, _, _ := flow.Transition(f, "7 vendedores")
		Expect(f2.Phone).To(BeEmpty())
		Expect(f2.TeamSize).To(HaveValue(Equal(7)))
	})

	It("rejects a non-positive team size", func() {
		f := model.Fields{FirstName: "M", LastName: "L", Company: "Acme", Email: "m@l.co", Phone: "+55 11 9"}
		f2, reply, _ := flow.Transition(f, "0")
		Expect(f2.TeamSize).To(BeNil())
		Expect(reply).To(ContainSubstring("time de vendas"))
	})

	It("normalizes a recognized pain category", func() {
		size := 7
		f := model.Fields{
			FirstName: "Maria", LastName: "Lopes", Company: "Acme",
			Email: "maria@acme.com", Phone: "+5511", TeamSize: &size, Tools: "CRM",
		}
		f2, _, action := flow.Transition(f, "Integracao MKT Vendas")
		Expect(f2.MainPain).To(Equal("integracao_mkt_vendas"))
		Expect(action).To(Equal(model.ActionHandoff))
	})

	It("stays idle once fully qualified", func() {
		size := 7
		f := model.Fields{
			FirstName: "Maria", LastName: "Lopes", Company: "Acme",
			Email: "maria@acme.com", Phone: "+5511", TeamSize: &size,
			Tools: "CRM", MainPain: "automacao",
		}
		f2, reply, action := flow.Transition(f, "oi de novo")
		Expect(f2).To(Equal(f))
		Expect(reply).To(Equal("Como posso ajudar?"))
		Expect(action).To(Equal(model.ActionNone))
	})
})
