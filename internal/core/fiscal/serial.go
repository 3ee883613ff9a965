package fiscal

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// A representação intermediária separa "o que deve ser emitido, em que ordem"
// da codificação textual. Secoes devolve as seções da nota na ordem fixa do
// layout; o serializador (xml.go) apenas percorre essa árvore.

// Campo é um par nome/valor já formatado para o fio.
type Campo struct {
	Nome  string
	Valor string
}

// Secao é um nó nomeado com campos ordenados e subseções ordenadas.
type Secao struct {
	Nome     string
	Atributo string // valor do atributo nItem, quando aplicável
	Campos   []Campo
	Filhos   []Secao
}

// Secoes monta a árvore ordenada da nota: ide, emit, dest (se presente), um
// det por item em ordem crescente de nItem, total, transp, pag e infAdic
// opcional. A ordem é contrato externo e não pode ser rearranjada.
func (n *Nota) Secoes() []Secao {
	secoes := []Secao{
		{
			Nome: "ide",
			Campos: []Campo{
				{"cUF", n.Emitente.Endereco.CodigoUF},
				{"mod", string(n.Ident.Modelo)},
				{"serie", fmt.Sprintf("%03d", n.Ident.Serie)},
				{"nNF", fmt.Sprintf("%09d", n.Ident.Numero)},
				{"dhEmi", n.Ident.Emissao.Format("2006-01-02T15:04:05-07:00")},
				{"tpEmis", formaEmissaoNormal},
				{"tpAmb", fmt.Sprintf("%d", n.Ambiente)},
				{"chNFe", n.Chave},
			},
		},
		n.secaoParte("emit", n.Emitente.RazaoSocial, n.Emitente.Documento, n.Emitente.InscricaoEstadual, n.Emitente.Endereco),
	}

	if n.Destinatario != nil {
		secoes = append(secoes, n.secaoParte("dest", n.Destinatario.RazaoSocial, n.Destinatario.Documento, "", n.Destinatario.Endereco))
	}

	for _, item := range n.Itens {
		secoes = append(secoes, Secao{
			Nome:     "det",
			Atributo: fmt.Sprintf("%d", item.NumItem),
			Filhos: []Secao{{
				Nome: "prod",
				Campos: []Campo{
					{"cProd", item.Codigo},
					{"xProd", TextoFio(item.Descricao)},
					{"NCM", item.NCM},
					{"CFOP", item.CFOP},
					{"uCom", item.Unidade},
					{"qCom", item.Quantidade.String()},
					{"vUnCom", item.ValorUnitario.String()},
					{"vProd", item.ValorTotal.StringFixed(casasMoeda)},
				},
			}},
		})
	}

	secoes = append(secoes,
		Secao{
			Nome: "total",
			Campos: []Campo{
				{"vProd", n.Totais.ValorProdutos.StringFixed(casasMoeda)},
				{"vFrete", n.Totais.ValorFrete.StringFixed(casasMoeda)},
				{"vSeg", n.Totais.ValorSeguro.StringFixed(casasMoeda)},
				{"vDesc", n.Totais.ValorDesconto.StringFixed(casasMoeda)},
				{"vNF", n.Totais.ValorNota.StringFixed(casasMoeda)},
			},
		},
		Secao{
			Nome:   "transp",
			Campos: []Campo{{"modFrete", "9"}},
		},
		Secao{
			Nome: "pag",
			Filhos: []Secao{{
				Nome: "detPag",
				Campos: []Campo{
					{"tPag", "01"},
					{"vPag", n.Totais.ValorNota.StringFixed(casasMoeda)},
				},
			}},
		},
	)

	if n.InfAdicional != "" {
		secoes = append(secoes, Secao{
			Nome:   "infAdic",
			Campos: []Campo{{"infCpl", TextoFio(n.InfAdicional)}},
		})
	}

	return secoes
}

func (n *Nota) secaoParte(nome, razao, documento, ie string, end Endereco) Secao {
	tagDoc := "CNPJ"
	if len(documento) == 11 {
		tagDoc = "CPF"
	}
	campos := []Campo{
		{tagDoc, documento},
		{"xNome", TextoFio(razao)},
	}
	if ie != "" {
		campos = append(campos, Campo{"IE", ie})
	}
	return Secao{
		Nome:   nome,
		Campos: campos,
		Filhos: []Secao{{
			Nome: "ender",
			Campos: []Campo{
				{"xLgr", TextoFio(end.Logradouro)},
				{"nro", end.Numero},
				{"xBairro", TextoFio(end.Bairro)},
				{"cMun", end.CodigoMunicipio},
				{"xMun", TextoFio(end.Municipio)},
				{"CEP", end.CEP},
			},
		}},
	}
}

// TextoFio remove acentos de campos textuais antes da serialização, mantendo
// o restante do texto intacto.
func TextoFio(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(out)
}
