package notas

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/LuisEduardoPedra/emissorNfe/internal/core/fiscal"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Registro é o snapshot imutável da nota, gravado uma única vez na emissão.
// Mudanças de status nunca alteram o snapshot: viram Eventos que referenciam
// a chave.
type Registro struct {
	Chave        string    `firestore:"chave"`
	Modelo       string    `firestore:"modelo"`
	Serie        uint16    `firestore:"serie"`
	Numero       uint32    `firestore:"numero"`
	Ambiente     int       `firestore:"ambiente"`
	EmitenteCNPJ string    `firestore:"emitenteCnpj"`
	EmitenteNome string    `firestore:"emitenteNome"`
	ValorNota    string    `firestore:"valorNota"`
	XML          string    `firestore:"xml"`
	CriadaEm     time.Time `firestore:"criadaEm"`
}

// Evento é um registro imutável de transição de estado da nota.
type Evento struct {
	ID        string        `firestore:"id"`
	Chave     string        `firestore:"chave"`
	Status    fiscal.Status `firestore:"status"`
	Protocolo string        `firestore:"protocolo,omitempty"`
	CStat     string        `firestore:"cstat,omitempty"`
	Motivo    string        `firestore:"motivo,omitempty"`
	Em        time.Time     `firestore:"em"`
}

// ErrNotaNaoEncontrada sinaliza consulta por chave inexistente.
var ErrNotaNaoEncontrada = fmt.Errorf("nota não encontrada")

// Registros persiste snapshots e eventos de notas.
type Registros interface {
	SalvarRegistro(ctx context.Context, r *Registro) error
	SalvarEvento(ctx context.Context, e *Evento) error
	BuscarRegistro(ctx context.Context, chave string) (*Registro, error)
	ListarEventos(ctx context.Context, chave string) ([]Evento, error)
}

const (
	colecaoNotas   = "notas"
	colecaoEventos = "nota_eventos"
)

// RegistrosFirestore guarda notas e eventos no Firestore, o mesmo banco que
// já serve o cadastro de usuários.
type RegistrosFirestore struct {
	db *firestore.Client
}

func NewRegistrosFirestore(db *firestore.Client) *RegistrosFirestore {
	return &RegistrosFirestore{db: db}
}

func (r *RegistrosFirestore) SalvarRegistro(ctx context.Context, registro *Registro) error {
	_, err := r.db.Collection(colecaoNotas).Doc(registro.Chave).Create(ctx, registro)
	if status.Code(err) == codes.AlreadyExists {
		// Snapshot imutável: reemissão idempotente da mesma chave não regrava.
		return nil
	}
	if err != nil {
		return fmt.Errorf("falha ao gravar nota %s: %w", registro.Chave, err)
	}
	return nil
}

func (r *RegistrosFirestore) SalvarEvento(ctx context.Context, evento *Evento) error {
	_, err := r.db.Collection(colecaoEventos).Doc(evento.ID).Create(ctx, evento)
	if err != nil {
		return fmt.Errorf("falha ao gravar evento da nota %s: %w", evento.Chave, err)
	}
	return nil
}

func (r *RegistrosFirestore) BuscarRegistro(ctx context.Context, chave string) (*Registro, error) {
	doc, err := r.db.Collection(colecaoNotas).Doc(chave).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("chave %s: %w", chave, ErrNotaNaoEncontrada)
	}
	if err != nil {
		return nil, fmt.Errorf("falha ao buscar nota %s: %w", chave, err)
	}
	var registro Registro
	if err := doc.DataTo(&registro); err != nil {
		return nil, fmt.Errorf("registro da nota %s ilegível: %w", chave, err)
	}
	return &registro, nil
}

func (r *RegistrosFirestore) ListarEventos(ctx context.Context, chave string) ([]Evento, error) {
	query := r.db.Collection(colecaoEventos).
		Where("chave", "==", chave).
		OrderBy("em", firestore.Asc).
		Documents(ctx)
	defer query.Stop()

	var eventos []Evento
	for {
		doc, err := query.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("falha ao listar eventos da nota %s: %w", chave, err)
		}
		var evento Evento
		if err := doc.DataTo(&evento); err != nil {
			return nil, fmt.Errorf("evento da nota %s ilegível: %w", chave, err)
		}
		eventos = append(eventos, evento)
	}
	return eventos, nil
}
