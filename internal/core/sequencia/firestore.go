package sequencia

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/LuisEduardoPedra/emissorNfe/internal/core/fiscal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const colecaoSequencias = "sequencias"

// Firestore aloca números dentro de uma transação do Firestore: o documento
// da série guarda apenas o último número entregue, e a transação garante que
// dois emissores concorrentes nunca leiam o mesmo valor.
type Firestore struct {
	db *firestore.Client
}

func NewFirestore(db *firestore.Client) *Firestore {
	return &Firestore{db: db}
}

func (f *Firestore) Proximo(ctx context.Context, cnpj string, modelo fiscal.Modelo, serie uint16) (uint32, error) {
	ref := f.db.Collection(colecaoSequencias).Doc(chaveSerie(cnpj, modelo, serie))

	var proximo uint32
	err := f.db.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		ultimo := int64(0)
		switch {
		case err == nil:
			valor, err := doc.DataAt("ultimo")
			if err != nil {
				return err
			}
			var ok bool
			ultimo, ok = valor.(int64)
			if !ok {
				return fmt.Errorf("campo 'ultimo' da série %s com tipo inesperado", ref.ID)
			}
		case status.Code(err) == codes.NotFound:
			// Primeira emissão da série.
		default:
			return err
		}

		if ultimo >= 999999999 {
			return fmt.Errorf("série %s esgotou os 9 dígitos: %w", ref.ID, fiscal.ErrCampoInvalido)
		}
		proximo = uint32(ultimo + 1)
		return tx.Set(ref, map[string]interface{}{"ultimo": int64(proximo)})
	})
	if err != nil {
		return 0, fmt.Errorf("falha ao alocar número da série: %w", err)
	}
	return proximo, nil
}
