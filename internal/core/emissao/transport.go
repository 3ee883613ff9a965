package emissao

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/LuisEduardoPedra/emissorNfe/internal/core/fiscal"
)

// AssinadorSimulado devolve o documento intacto. Serve para homologação local
// e testes; a assinatura real é um colaborador externo.
type AssinadorSimulado struct{}

func (AssinadorSimulado) Assinar(_ context.Context, documento []byte, _ string) ([]byte, error) {
	return documento, nil
}

// TransporteSimulado é o dublê determinístico da autoridade: autoriza tudo,
// exceto chaves listadas em Rejeicoes. O protocolo é derivado da chave, então
// reenviar a mesma chave devolve o mesmo protocolo (no-op, como a autoridade
// real trata duplicata).
type TransporteSimulado struct {
	// Rejeicoes mapeia chave de acesso -> rejeição simulada.
	Rejeicoes map[string]Resultado
	// Rejeitar, quando não nil, rejeita qualquer chave com este desfecho.
	Rejeitar *Resultado
	// Falha, quando não nil, é devolvida como erro transitório em toda chamada.
	Falha error
}

func (t *TransporteSimulado) Enviar(ctx context.Context, _ []byte, chave string, _ fiscal.Ambiente) (Resultado, error) {
	if err := ctx.Err(); err != nil {
		return Resultado{}, err
	}
	if t.Falha != nil {
		return Resultado{}, t.Falha
	}
	if r, ok := t.Rejeicoes[chave]; ok {
		return r, nil
	}
	if t.Rejeitar != nil {
		return *t.Rejeitar, nil
	}
	return Resultado{
		Autorizada: true,
		Protocolo:  protocoloSimulado(chave),
		CStat:      "100",
		Motivo:     "Autorizado o uso da NF-e",
	}, nil
}

func (t *TransporteSimulado) Cancelar(ctx context.Context, _ []byte, chave string, _ fiscal.Ambiente) (ResultadoCancelamento, error) {
	if err := ctx.Err(); err != nil {
		return ResultadoCancelamento{}, err
	}
	if t.Falha != nil {
		return ResultadoCancelamento{}, t.Falha
	}
	return ResultadoCancelamento{
		Confirmado: true,
		Protocolo:  "9" + protocoloSimulado(chave)[1:],
		CStat:      "101",
		Motivo:     "Cancelamento de NF-e homologado",
	}, nil
}

func protocoloSimulado(chave string) string {
	if len(chave) < 15 {
		return "135000000000000"
	}
	return "135" + chave[len(chave)-12:]
}

// TransporteHTTP fala com o serviço de autorização por HTTP. O protocolo real
// da SEFAZ (SOAP, lotes, consulta de recibo) fica no serviço intermediário;
// aqui só entra o envio do documento assinado e a leitura do desfecho.
type TransporteHTTP struct {
	Cliente        *http.Client
	URLProducao    string
	URLHomologacao string
}

type respostaAutoridade struct {
	CStat  string `json:"cStat"`
	Motivo string `json:"xMotivo"`
	NProt  string `json:"nProt"`
}

func (t *TransporteHTTP) url(ambiente fiscal.Ambiente) string {
	if ambiente == fiscal.AmbienteProducao {
		return t.URLProducao
	}
	return t.URLHomologacao
}

func (t *TransporteHTTP) cliente() *http.Client {
	if t.Cliente != nil {
		return t.Cliente
	}
	return http.DefaultClient
}

func (t *TransporteHTTP) enviar(ctx context.Context, caminho string, corpo []byte, ambiente fiscal.Ambiente) (respostaAutoridade, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url(ambiente)+caminho, bytes.NewReader(corpo))
	if err != nil {
		return respostaAutoridade{}, err
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := t.cliente().Do(req)
	if err != nil {
		return respostaAutoridade{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return respostaAutoridade{}, fmt.Errorf("autoridade respondeu HTTP %d", resp.StatusCode)
	}
	var r respostaAutoridade
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return respostaAutoridade{}, fmt.Errorf("resposta da autoridade ilegível: %w", err)
	}
	return r, nil
}

func (t *TransporteHTTP) Enviar(ctx context.Context, assinado []byte, _ string, ambiente fiscal.Ambiente) (Resultado, error) {
	r, err := t.enviar(ctx, "/autorizacao", assinado, ambiente)
	if err != nil {
		return Resultado{}, err
	}
	return Resultado{
		Autorizada: r.CStat == "100",
		Protocolo:  r.NProt,
		CStat:      r.CStat,
		Motivo:     r.Motivo,
	}, nil
}

func (t *TransporteHTTP) Cancelar(ctx context.Context, evento []byte, _ string, ambiente fiscal.Ambiente) (ResultadoCancelamento, error) {
	r, err := t.enviar(ctx, "/evento/cancelamento", evento, ambiente)
	if err != nil {
		return ResultadoCancelamento{}, err
	}
	return ResultadoCancelamento{
		Confirmado: r.CStat == "101" || r.CStat == "135",
		Protocolo:  r.NProt,
		CStat:      r.CStat,
		Motivo:     r.Motivo,
	}, nil
}
