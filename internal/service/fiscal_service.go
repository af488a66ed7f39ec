package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/jrrjunior25/pdv-fiscal/internal/apperr"
	"github.com/jrrjunior25/pdv-fiscal/internal/dto"
	"github.com/jrrjunior25/pdv-fiscal/internal/fiscal"
	"github.com/jrrjunior25/pdv-fiscal/internal/infra"
	"github.com/jrrjunior25/pdv-fiscal/internal/model"
	"github.com/jrrjunior25/pdv-fiscal/internal/repository"
)

const maxSefazRetries = 8

type FiscalService interface {
	GetConfig(ctx context.Context) (*dto.FiscalConfigResponse, error)
	SaveConfig(ctx context.Context, req dto.FiscalConfigRequest) (*dto.FiscalConfigResponse, error)
	UploadCertificate(ctx context.Context, req dto.UploadCertificateRequest) (*dto.FiscalConfigResponse, error)

	// IssueNFCe emits the document for a completed sale. Idempotent per sale:
	// a second call returns the existing document. When SEFAZ is unreachable
	// the document stays PENDENTE with a scheduled retry instead of failing.
	IssueNFCe(ctx context.Context, saleID uuid.UUID) (*dto.FiscalDocumentResponse, error)
	RetryDocument(ctx context.Context, docID uuid.UUID) (*dto.FiscalDocumentResponse, error)
	// ProcessDueRetries resubmits every document whose retry window has
	// passed. Returns how many were attempted.
	ProcessDueRetries(ctx context.Context) (int, error)
	CancelDocument(ctx context.Context, docID uuid.UUID, reason string) (*dto.FiscalDocumentResponse, error)

	GetDocument(ctx context.Context, docID uuid.UUID) (*dto.FiscalDocumentResponse, error)
	GetDocumentBySale(ctx context.Context, saleID uuid.UUID) (*dto.FiscalDocumentResponse, error)
	ListDocuments(ctx context.Context, status string, from, to *time.Time) ([]dto.FiscalDocumentResponse, error)

	GeneratePix(ctx context.Context, req dto.GeneratePixRequest) (*dto.PixChargeResponse, error)
	ListPixBySale(ctx context.Context, saleID uuid.UUID) ([]dto.PixChargeResponse, error)
}

type fiscalService struct {
	reg     *repository.Registry
	sefaz   *infra.SefazClient
	cb      *infra.CircuitBreaker
	xmlPath string
	pdfPath string
}

func NewFiscalService(reg *repository.Registry, sefaz *infra.SefazClient, cb *infra.CircuitBreaker, xmlPath, pdfPath string) FiscalService {
	return &fiscalService{reg: reg, sefaz: sefaz, cb: cb, xmlPath: xmlPath, pdfPath: pdfPath}
}

// ── Config ────────────────────────────────────────────────────────────────────

func (s *fiscalService) GetConfig(ctx context.Context) (*dto.FiscalConfigResponse, error) {
	cfg, err := s.reg.Fiscal.GetConfig(ctx)
	if err != nil {
		return nil, apperr.NotFound("configuração fiscal não cadastrada")
	}
	return configToResponse(cfg), nil
}

func (s *fiscalService) SaveConfig(ctx context.Context, req dto.FiscalConfigRequest) (*dto.FiscalConfigResponse, error) {
	cfg, err := s.reg.Fiscal.GetConfig(ctx)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		cfg = &model.FiscalConfig{NextNumber: 1}
	}

	cfg.CNPJ = req.CNPJ
	cfg.Name = req.Name
	cfg.FantasyName = req.FantasyName
	cfg.IE = req.IE
	cfg.Street = req.Street
	cfg.Number = req.Number
	cfg.Neighborhood = req.Neighborhood
	cfg.City = req.City
	cfg.CityCode = req.CityCode
	cfg.State = req.State
	cfg.ZipCode = req.ZipCode
	cfg.PixKey = req.PixKey
	cfg.PixMerchantName = req.PixMerchantName
	cfg.PixMerchantCity = req.PixMerchantCity
	cfg.Environment = req.Environment
	if req.NfceSeries > 0 && req.NfceSeries != cfg.NfceSeries {
		// A new series restarts its own numbering.
		cfg.NfceSeries = req.NfceSeries
		cfg.NextNumber = 1
	}

	if err := s.reg.Fiscal.SaveConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return configToResponse(cfg), nil
}

func (s *fiscalService) UploadCertificate(ctx context.Context, req dto.UploadCertificateRequest) (*dto.FiscalConfigResponse, error) {
	cfg, err := s.reg.Fiscal.GetConfig(ctx)
	if err != nil {
		return nil, apperr.State("cadastre a configuração fiscal antes do certificado")
	}

	info, err := fiscal.CheckValidity(req.Certificate, req.Password, time.Now())
	if err != nil {
		return nil, apperr.Certificate(err.Error())
	}

	cfg.Certificate = req.Certificate
	cfg.CertificatePass = req.Password
	cfg.CertExpiresAt = &info.NotAfter
	if err := s.reg.Fiscal.SaveConfig(ctx, cfg); err != nil {
		return nil, err
	}

	log.Info().Str("subject", info.Subject).Time("expires_at", info.NotAfter).
		Msg("certificado A1 atualizado")
	return configToResponse(cfg), nil
}

// ── Issuance ──────────────────────────────────────────────────────────────────

func (s *fiscalService) IssueNFCe(ctx context.Context, saleID uuid.UUID) (*dto.FiscalDocumentResponse, error) {
	sale, err := s.reg.Sales.FindByID(ctx, saleID)
	if err != nil {
		return nil, apperr.NotFound("venda não encontrada")
	}
	if sale.Status != "COMPLETED" {
		return nil, apperr.State("somente vendas concluídas podem ser faturadas")
	}

	if existing, err := s.reg.Fiscal.FindDocumentBySaleID(ctx, saleID); err == nil {
		return documentToResponse(existing), nil
	}

	cfg, err := s.reg.Fiscal.GetConfig(ctx)
	if err != nil {
		return nil, apperr.State("configuração fiscal não cadastrada")
	}

	// Certificate is validated before a number is allocated so a bad
	// certificate never burns a position in the legal sequence.
	hasCert := cfg.Certificate != ""
	if hasCert && cfg.CertExpiresAt != nil && time.Now().After(*cfg.CertExpiresAt) {
		return nil, apperr.Certificate("certificado A1 expirado; renove antes de emitir")
	}

	number, series, err := s.reg.Fiscal.AllocateNumber(ctx)
	if err != nil {
		return nil, err
	}

	fdoc := buildFiscalDocument(sale, cfg, number, series)
	xml, accessKey := fiscal.BuildXML(fdoc)

	doc := &model.FiscalDocument{
		SaleID:    sale.ID,
		Number:    number,
		Series:    series,
		AccessKey: accessKey,
		XML:       xml,
		Total:     sale.Total,
		Status:    "PENDENTE",
		QRCodeURL: fiscal.QRCodeURL(accessKey, "", cfg.Environment),
	}
	if !hasCert {
		doc.Status = "SEM_CERTIFICADO"
	}
	if err := s.reg.Fiscal.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}
	s.persistXML(doc)

	if pix := s.maybeCreatePixCharge(ctx, sale, doc, cfg); pix != nil {
		log.Debug().Str("tx_id", pix.TxID).Msg("cobrança PIX vinculada ao documento")
	}

	if !hasCert {
		log.Warn().Int64("number", number).Msg("NFC-e emitida sem certificado; não enviada à SEFAZ")
		return documentToResponse(doc), nil
	}

	s.submit(ctx, doc, sale, cfg)
	if err := s.reg.Fiscal.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return documentToResponse(doc), nil
}

// submit runs the SEFAZ authorization attempt through the circuit breaker
// with short in-process retries. It mutates doc in place; callers persist.
func (s *fiscalService) submit(ctx context.Context, doc *model.FiscalDocument, sale *model.Sale, cfg *model.FiscalConfig) {
	var resp *infra.SefazResponse
	err := withRetry(3, time.Second, func() error {
		return s.cb.Execute(func() error {
			var subErr error
			resp, subErr = s.sefaz.Submit(ctx, infra.SefazSubmission{
				AccessKey:   doc.AccessKey,
				XML:         doc.XML,
				Environment: cfg.Environment,
			})
			return subErr
		})
	})

	if err != nil {
		// Transport failure or open breaker: keep PENDENTE and schedule the
		// cron-driven retry. The allocated number stays with this document.
		msg := err.Error()
		doc.LastError = &msg
		doc.RetryCount++
		next := time.Now().Add(retryBackoff(doc.RetryCount))
		doc.NextRetryAt = &next
		if doc.RetryCount >= maxSefazRetries {
			doc.Status = "ERRO"
			doc.NextRetryAt = nil
		}
		log.Warn().Err(err).Int64("number", doc.Number).Int("retry_count", doc.RetryCount).
			Msg("falha ao transmitir NFC-e")
		return
	}

	if !resp.Success {
		// SEFAZ looked at the document and said no. Final.
		doc.Status = "REJEITADA"
		reason := resp.Message
		if resp.Error != "" {
			reason = resp.Error
		}
		doc.LastError = &reason
		doc.NextRetryAt = nil
		log.Error().Int64("number", doc.Number).Str("reason", reason).Msg("NFC-e rejeitada pela SEFAZ")
		return
	}

	doc.Status = "AUTORIZADA"
	doc.Protocol = &resp.Protocol
	doc.LastError = nil
	doc.NextRetryAt = nil
	log.Info().Int64("number", doc.Number).Str("protocol", resp.Protocol).Msg("NFC-e autorizada")

	if sale != nil {
		if path, err := infra.GenerateDanfePDF(doc, sale, cfg, s.pdfPath); err == nil {
			doc.PDFPath = &path
		} else {
			log.Warn().Err(err).Int64("number", doc.Number).Msg("falha ao gerar DANFE")
		}
	}
}

func (s *fiscalService) RetryDocument(ctx context.Context, docID uuid.UUID) (*dto.FiscalDocumentResponse, error) {
	doc, err := s.reg.Fiscal.FindDocumentByID(ctx, docID)
	if err != nil {
		return nil, apperr.NotFound("documento fiscal não encontrado")
	}
	if doc.Status != "PENDENTE" && doc.Status != "ERRO" {
		return nil, apperr.State("documento em estado '" + doc.Status + "' não pode ser retransmitido")
	}

	cfg, err := s.reg.Fiscal.GetConfig(ctx)
	if err != nil {
		return nil, apperr.State("configuração fiscal não cadastrada")
	}
	if cfg.Certificate == "" {
		return nil, apperr.Certificate("certificado A1 ausente")
	}

	sale, _ := s.reg.Sales.FindByID(ctx, doc.SaleID)

	// Manual retry resets the ERRO terminal state.
	doc.Status = "PENDENTE"
	s.submit(ctx, doc, sale, cfg)
	if err := s.reg.Fiscal.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return documentToResponse(doc), nil
}

func (s *fiscalService) ProcessDueRetries(ctx context.Context) (int, error) {
	docs, err := s.reg.Fiscal.ListDueRetries(ctx, time.Now(), 50)
	if err != nil {
		return 0, err
	}
	cfg, err := s.reg.Fiscal.GetConfig(ctx)
	if err != nil || cfg.Certificate == "" {
		return 0, nil
	}

	for i := range docs {
		doc := &docs[i]
		sale, _ := s.reg.Sales.FindByID(ctx, doc.SaleID)
		s.submit(ctx, doc, sale, cfg)
		if err := s.reg.Fiscal.UpdateDocument(ctx, doc); err != nil {
			log.Error().Err(err).Int64("number", doc.Number).Msg("falha ao persistir retentativa")
		}
	}
	return len(docs), nil
}

func (s *fiscalService) CancelDocument(ctx context.Context, docID uuid.UUID, reason string) (*dto.FiscalDocumentResponse, error) {
	doc, err := s.reg.Fiscal.FindDocumentByID(ctx, docID)
	if err != nil {
		return nil, apperr.NotFound("documento fiscal não encontrado")
	}

	switch doc.Status {
	case "CANCELADA":
		return documentToResponse(doc), nil
	case "PENDENTE", "SEM_CERTIFICADO", "ERRO":
		// Never transmitted (or never accepted): cancel locally.
	case "AUTORIZADA":
		cfg, err := s.reg.Fiscal.GetConfig(ctx)
		if err != nil {
			return nil, apperr.State("configuração fiscal não cadastrada")
		}
		err = s.cb.Execute(func() error {
			resp, subErr := s.sefaz.Submit(ctx, infra.SefazSubmission{
				AccessKey:   doc.AccessKey,
				XML:         cancellationEventXML(doc, reason),
				Environment: cfg.Environment,
			})
			if subErr != nil {
				return subErr
			}
			if !resp.Success {
				return fmt.Errorf("SEFAZ recusou o cancelamento: %s", resp.Message)
			}
			return nil
		})
		if err != nil {
			return nil, apperr.External("falha ao cancelar NFC-e na SEFAZ", err)
		}
	default:
		return nil, apperr.State("documento em estado '" + doc.Status + "' não pode ser cancelado")
	}

	doc.Status = "CANCELADA"
	doc.LastError = &reason
	doc.NextRetryAt = nil
	if err := s.reg.Fiscal.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return documentToResponse(doc), nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *fiscalService) GetDocument(ctx context.Context, docID uuid.UUID) (*dto.FiscalDocumentResponse, error) {
	doc, err := s.reg.Fiscal.FindDocumentByID(ctx, docID)
	if err != nil {
		return nil, apperr.NotFound("documento fiscal não encontrado")
	}
	return documentToResponse(doc), nil
}

func (s *fiscalService) GetDocumentBySale(ctx context.Context, saleID uuid.UUID) (*dto.FiscalDocumentResponse, error) {
	doc, err := s.reg.Fiscal.FindDocumentBySaleID(ctx, saleID)
	if err != nil {
		return nil, apperr.NotFound("venda não possui documento fiscal")
	}
	return documentToResponse(doc), nil
}

func (s *fiscalService) ListDocuments(ctx context.Context, status string, from, to *time.Time) ([]dto.FiscalDocumentResponse, error) {
	docs, err := s.reg.Fiscal.ListDocuments(ctx, status, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]dto.FiscalDocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, *documentToResponse(&docs[i]))
	}
	return out, nil
}

// ── PIX ───────────────────────────────────────────────────────────────────────

func (s *fiscalService) GeneratePix(ctx context.Context, req dto.GeneratePixRequest) (*dto.PixChargeResponse, error) {
	cfg, err := s.reg.Fiscal.GetConfig(ctx)
	if err != nil {
		return nil, apperr.State("configuração fiscal não cadastrada")
	}
	if cfg.PixKey == "" {
		return nil, apperr.State("chave PIX não configurada")
	}

	charge, err := fiscal.BuildBRCode(fiscal.PixParams{
		Key:          cfg.PixKey,
		MerchantName: cfg.PixMerchantName,
		MerchantCity: cfg.PixMerchantCity,
		Amount:       req.Amount,
		Description:  req.Description,
	})
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	pix := &model.PixCharge{
		SaleID:    req.SaleID,
		TxID:      charge.TxID,
		Amount:    charge.Amount,
		BRCode:    charge.BRCode,
		ExpiresAt: charge.ExpiresAt,
	}
	if err := s.reg.Fiscal.CreatePixCharge(ctx, pix); err != nil {
		return nil, err
	}
	return pixToResponse(pix), nil
}

func (s *fiscalService) ListPixBySale(ctx context.Context, saleID uuid.UUID) ([]dto.PixChargeResponse, error) {
	charges, err := s.reg.Fiscal.ListPixBySale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PixChargeResponse, 0, len(charges))
	for i := range charges {
		out = append(out, *pixToResponse(&charges[i]))
	}
	return out, nil
}

// maybeCreatePixCharge links a charge to the document when the sale was paid
// (fully or partially) via PIX. Best effort: failures are logged, not fatal.
func (s *fiscalService) maybeCreatePixCharge(ctx context.Context, sale *model.Sale, doc *model.FiscalDocument, cfg *model.FiscalConfig) *model.PixCharge {
	if cfg.PixKey == "" {
		return nil
	}
	for _, payment := range sale.Payments {
		if payment.Method != "pix" {
			continue
		}
		charge, err := fiscal.BuildBRCode(fiscal.PixParams{
			Key:          cfg.PixKey,
			MerchantName: cfg.PixMerchantName,
			MerchantCity: cfg.PixMerchantCity,
			Amount:       payment.Amount,
			Description:  fmt.Sprintf("Venda %d", sale.Number),
		})
		if err != nil {
			log.Warn().Err(err).Msg("falha ao gerar BR Code")
			return nil
		}
		pix := &model.PixCharge{
			DocumentID: &doc.ID,
			SaleID:     &sale.ID,
			TxID:       charge.TxID,
			Amount:     charge.Amount,
			BRCode:     charge.BRCode,
			ExpiresAt:  charge.ExpiresAt,
		}
		if err := s.reg.Fiscal.CreatePixCharge(ctx, pix); err != nil {
			log.Warn().Err(err).Msg("falha ao persistir cobrança PIX")
			return nil
		}
		return pix
	}
	return nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// withRetry runs fn up to attempts times with exponential backoff (1s, 2s, …).
// ErrCircuitOpen short-circuits: waiting in-process will not help.
func withRetry(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, infra.ErrCircuitOpen) {
			return err
		}
		if i < attempts-1 {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return err
}

// retryBackoff doubles per attempt starting at 1 minute, capped at 30 minutes.
func retryBackoff(retryCount int) time.Duration {
	d := time.Minute << (retryCount - 1)
	if d > 30*time.Minute || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

func buildFiscalDocument(sale *model.Sale, cfg *model.FiscalConfig, number int64, series int) *fiscal.Document {
	fdoc := &fiscal.Document{
		Number:      number,
		Series:      series,
		IssuedAt:    time.Now(),
		Total:       sale.Total,
		Environment: cfg.Environment,
		Emitter: fiscal.Emitter{
			CNPJ:        cfg.CNPJ,
			Name:        cfg.Name,
			FantasyName: cfg.FantasyName,
			IE:          cfg.IE,
			Address: fiscal.Address{
				Street:       cfg.Street,
				Number:       cfg.Number,
				Neighborhood: cfg.Neighborhood,
				City:         cfg.City,
				CityCode:     cfg.CityCode,
				State:        cfg.State,
				ZipCode:      cfg.ZipCode,
			},
		},
	}
	if sale.CustomerCPF != nil && *sale.CustomerCPF != "" {
		customer := &fiscal.Customer{CPF: *sale.CustomerCPF}
		if sale.CustomerName != nil {
			customer.Name = *sale.CustomerName
		}
		fdoc.Customer = customer
	}
	for _, item := range sale.Items {
		fitem := fiscal.Item{
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Total,
			NCM:       "00000000",
			CFOP:      "5102",
		}
		if item.Product != nil {
			fitem.Code = item.Product.Code
			fitem.Name = item.Product.Name
			fitem.NCM = item.Product.NCM
			fitem.CFOP = item.Product.CFOP
		}
		fdoc.Items = append(fdoc.Items, fitem)
	}
	return fdoc
}

// cancellationEventXML is the event envelope sent to void an authorized note.
func cancellationEventXML(doc *model.FiscalDocument, reason string) string {
	protocol := ""
	if doc.Protocol != nil {
		protocol = *doc.Protocol
	}
	return fmt.Sprintf(
		`<evento versao="1.00"><infEvento><chNFe>%s</chNFe><tpEvento>110111</tpEvento><nProt>%s</nProt><xJust>%s</xJust></infEvento></evento>`,
		doc.AccessKey, protocol, reason)
}

func (s *fiscalService) persistXML(doc *model.FiscalDocument) {
	if s.xmlPath == "" {
		return
	}
	if err := os.MkdirAll(s.xmlPath, 0755); err != nil {
		log.Warn().Err(err).Msg("falha ao criar diretório de XML")
		return
	}
	path := filepath.Join(s.xmlPath, fmt.Sprintf("%s.xml", doc.AccessKey))
	if err := os.WriteFile(path, []byte(doc.XML), 0644); err != nil {
		log.Warn().Err(err).Msg("falha ao gravar XML em disco")
	}
}

func configToResponse(cfg *model.FiscalConfig) *dto.FiscalConfigResponse {
	return &dto.FiscalConfigResponse{
		ID:             cfg.ID,
		CNPJ:           cfg.CNPJ,
		Name:           cfg.Name,
		FantasyName:    cfg.FantasyName,
		Environment:    cfg.Environment,
		NfceSeries:     cfg.NfceSeries,
		NextNumber:     cfg.NextNumber,
		HasCertificate: cfg.Certificate != "",
		CertExpiresAt:  cfg.CertExpiresAt,
		PixKey:         cfg.PixKey,
	}
}

func documentToResponse(d *model.FiscalDocument) *dto.FiscalDocumentResponse {
	return &dto.FiscalDocumentResponse{
		ID:         d.ID,
		SaleID:     d.SaleID,
		Number:     d.Number,
		Series:     d.Series,
		AccessKey:  d.AccessKey,
		Total:      d.Total,
		Status:     d.Status,
		Protocol:   d.Protocol,
		QRCodeURL:  d.QRCodeURL,
		PDFPath:    d.PDFPath,
		RetryCount: d.RetryCount,
		LastError:  d.LastError,
		CreatedAt:  d.CreatedAt,
	}
}

func pixToResponse(p *model.PixCharge) *dto.PixChargeResponse {
	return &dto.PixChargeResponse{
		ID:        p.ID,
		TxID:      p.TxID,
		Amount:    p.Amount,
		BRCode:    p.BRCode,
		ExpiresAt: p.ExpiresAt,
	}
}
