package fiscal

import "fmt"

// casasMoeda é a precisão monetária do layout: duas casas, arredondamento
// half-to-even (bancário). 3 * 7.995 = 23.985 fecha em 23.98.
const casasMoeda = 2

// EncodeItem valida um item contra sua posição 1-based na nota e calcula o
// subtotal da linha (quantidade * valor unitário, arredondado a 2 casas).
// Transformação pura, sem efeito colateral.
func EncodeItem(posicao int, item Item) (ItemEncodado, error) {
	if int(item.NumItem) != posicao {
		return ItemEncodado{}, fmt.Errorf("item na posição %d declara nItem %d: %w", posicao, item.NumItem, ErrSequenciaInvalida)
	}
	if !item.Quantidade.IsPositive() {
		return ItemEncodado{}, fmt.Errorf("item %d: quantidade deve ser maior que zero: %w", posicao, ErrValidacao)
	}
	if !item.ValorUnitario.IsPositive() {
		return ItemEncodado{}, fmt.Errorf("item %d: valor unitário deve ser maior que zero: %w", posicao, ErrValidacao)
	}
	if !soDigitos(item.NCM) || len(item.NCM) != 8 {
		return ItemEncodado{}, fmt.Errorf("item %d: NCM %q deve ter 8 dígitos: %w", posicao, item.NCM, ErrCampoInvalido)
	}
	if !soDigitos(item.CFOP) || len(item.CFOP) != 4 {
		return ItemEncodado{}, fmt.Errorf("item %d: CFOP %q deve ter 4 dígitos: %w", posicao, item.CFOP, ErrCampoInvalido)
	}

	return ItemEncodado{
		Item:       item,
		ValorTotal: item.Quantidade.Mul(item.ValorUnitario).RoundBank(casasMoeda),
	}, nil
}
