package fiscal

import (
	"encoding/xml"
	"fmt"
	"strings"
)

const versaoLayout = "4.00"

// RenderXML serializa a nota para o formato de fio, percorrendo a árvore de
// seções ordenada devolvida por Secoes. Só notas MONTADAS (ou posteriores no
// ciclo de vida) possuem chave e podem ser serializadas.
func RenderXML(n *Nota) ([]byte, error) {
	if n.Chave == "" {
		return nil, fmt.Errorf("nota sem chave de acesso ainda não foi montada: %w", ErrEstadoInvalido)
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<NFe xmlns="http://www.portalfiscal.inf.br/nfe">`)
	fmt.Fprintf(&b, `<infNFe Id="NFe%s" versao="%s">`, n.Chave, versaoLayout)
	for _, secao := range n.Secoes() {
		if err := escreverSecao(&b, secao); err != nil {
			return nil, err
		}
	}
	b.WriteString("</infNFe></NFe>")
	return []byte(b.String()), nil
}

func escreverSecao(b *strings.Builder, s Secao) error {
	if s.Atributo != "" {
		fmt.Fprintf(b, `<%s nItem="%s">`, s.Nome, s.Atributo)
	} else {
		fmt.Fprintf(b, "<%s>", s.Nome)
	}
	for _, campo := range s.Campos {
		fmt.Fprintf(b, "<%s>", campo.Nome)
		if err := xml.EscapeText(b, []byte(campo.Valor)); err != nil {
			return fmt.Errorf("erro ao escapar campo %s: %w", campo.Nome, err)
		}
		fmt.Fprintf(b, "</%s>", campo.Nome)
	}
	for _, filho := range s.Filhos {
		if err := escreverSecao(b, filho); err != nil {
			return err
		}
	}
	fmt.Fprintf(b, "</%s>", s.Nome)
	return nil
}

// RenderXMLCancelamento serializa o evento de cancelamento.
func RenderXMLCancelamento(c *Cancelamento) ([]byte, error) {
	if c == nil || c.Chave == "" || c.Protocolo == "" {
		return nil, fmt.Errorf("pedido de cancelamento incompleto: %w", ErrValidacao)
	}
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<envEvento xmlns="http://www.portalfiscal.inf.br/nfe">`)
	fmt.Fprintf(&b, "<chNFe>%s</chNFe>", c.Chave)
	fmt.Fprintf(&b, "<nProt>%s</nProt>", c.Protocolo)
	fmt.Fprintf(&b, "<dhEvento>%s</dhEvento>", c.SolicitadoEm.Format("2006-01-02T15:04:05-07:00"))
	b.WriteString("<xJust>")
	if err := xml.EscapeText(&b, []byte(TextoFio(c.Justificativa))); err != nil {
		return nil, fmt.Errorf("erro ao escapar justificativa: %w", err)
	}
	b.WriteString("</xJust>")
	b.WriteString("</envEvento>")
	return []byte(b.String()), nil
}
