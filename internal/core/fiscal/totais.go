package fiscal

import "fmt"

// CalcularTotais agrega os subtotais das linhas e os ajustes de documento.
// Cada termo é arredondado a 2 casas isoladamente e só então somado, porque é
// assim que a autoridade confere os totais; somar em precisão cheia e
// arredondar no fim produziria divergência de centavos.
func CalcularTotais(itens []ItemEncodado, ajustes Ajustes) (Totais, error) {
	t := Totais{
		ValorFrete:    ajustes.Frete.RoundBank(casasMoeda),
		ValorSeguro:   ajustes.Seguro.RoundBank(casasMoeda),
		ValorDesconto: ajustes.Desconto.RoundBank(casasMoeda),
	}
	for _, item := range itens {
		t.ValorProdutos = t.ValorProdutos.Add(item.ValorTotal)
	}
	t.ValorProdutos = t.ValorProdutos.RoundBank(casasMoeda)

	t.ValorNota = t.ValorProdutos.Add(t.ValorFrete).Add(t.ValorSeguro).Sub(t.ValorDesconto)
	if t.ValorNota.IsNegative() {
		return Totais{}, fmt.Errorf("desconto de %s excede os demais termos: %w", t.ValorDesconto.StringFixed(casasMoeda), ErrTotalNegativo)
	}
	return t, nil
}
