package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrrjunior25/pdv-fiscal/internal/apperr"
	"github.com/jrrjunior25/pdv-fiscal/internal/dto"
	"github.com/jrrjunior25/pdv-fiscal/internal/infra"
	"github.com/jrrjunior25/pdv-fiscal/internal/model"
)

// fastCB trips on the first failure and probes again almost immediately, so
// outage tests never sit in the in-process retry loop.
func fastCB() *infra.CircuitBreaker {
	return infra.NewCircuitBreaker(infra.CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		OpenTimeout:      10 * time.Millisecond,
	})
}

func authorizingGateway(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"protocol":"135240000012345"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func seedFiscalConfig(st *memState, withCert bool) *model.FiscalConfig {
	cfg := &model.FiscalConfig{
		ID: uuid.New(), CNPJ: "12345678000195",
		Name: "Mercado Bom Preço LTDA", FantasyName: "Bom Preço", IE: "1234567890",
		Street: "Rua das Flores", Number: "100", Neighborhood: "Centro",
		City: "São Paulo", CityCode: "3550308", State: "SP", ZipCode: "01001000",
		Environment: "homologacao", NfceSeries: 1, NextNumber: 1,
	}
	if withCert {
		expires := time.Now().Add(180 * 24 * time.Hour)
		cfg.Certificate = "cGZ4LWJsb2I="
		cfg.CertExpiresAt = &expires
	}
	st.fiscalConfig = cfg
	return cfg
}

func seedCompletedSale(st *memState, payMethod string) *model.Sale {
	product := st.addProduct(&model.Product{
		Code: "7894900011517", Name: "Água Mineral 500ml",
		NCM: "22011000", CFOP: "5102",
		SalePrice: decimal.NewFromInt(5), Stock: 100, Active: true,
	})
	st.saleNumber++
	sale := &model.Sale{
		ID:       uuid.New(),
		Number:   st.saleNumber,
		Status:   "COMPLETED",
		Subtotal: decimal.NewFromInt(10),
		Total:    decimal.NewFromInt(10),
		Items: []model.SaleItem{{
			ProductID: product.ID, Quantity: 2,
			UnitPrice: decimal.NewFromInt(5), Total: decimal.NewFromInt(10),
			Product: product,
		}},
		Payments: []model.SalePayment{{Method: payMethod, Amount: decimal.NewFromInt(10)}},
	}
	st.sales[sale.ID] = sale
	return sale
}

func validConfigRequest() dto.FiscalConfigRequest {
	return dto.FiscalConfigRequest{
		CNPJ: "12345678000195", Name: "Mercado Bom Preço LTDA", FantasyName: "Bom Preço",
		IE: "1234567890", Street: "Rua das Flores", Number: "100", Neighborhood: "Centro",
		City: "São Paulo", CityCode: "3550308", State: "SP", ZipCode: "01001000",
		Environment: "homologacao",
	}
}

func TestSaveConfig_NewSeriesResetsNumbering(t *testing.T) {
	reg, st := newMemRegistry()
	svc := NewFiscalService(reg, infra.NewSefazClient("", time.Second), fastCB(), "", "")

	req := validConfigRequest()
	req.NfceSeries = 1
	resp, err := svc.SaveConfig(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.NextNumber)

	// Numbering advanced by issuance must survive a config update on the
	// same series.
	st.fiscalConfig.NextNumber = 42
	resp, err = svc.SaveConfig(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(42), resp.NextNumber)

	// Switching series restarts the legal sequence.
	req.NfceSeries = 2
	resp, err = svc.SaveConfig(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.NfceSeries)
	assert.Equal(t, int64(1), resp.NextNumber)
}

func TestUploadCertificate_InvalidPFX(t *testing.T) {
	reg, st := newMemRegistry()
	svc := NewFiscalService(reg, infra.NewSefazClient("", time.Second), fastCB(), "", "")

	_, err := svc.UploadCertificate(context.Background(), dto.UploadCertificateRequest{
		Certificate: "isto não é base64!!", Password: "1234",
	})
	assert.True(t, apperr.Is(err, apperr.KindState)) // no config yet

	seedFiscalConfig(st, false)
	_, err = svc.UploadCertificate(context.Background(), dto.UploadCertificateRequest{
		Certificate: "isto não é base64!!", Password: "1234",
	})
	assert.True(t, apperr.Is(err, apperr.KindCertificate))
}

func TestIssueNFCe_Authorized(t *testing.T) {
	reg, st := newMemRegistry()
	srv := authorizingGateway(t)
	svc := NewFiscalService(reg, infra.NewSefazClient(srv.URL, time.Second),
		infra.NewCircuitBreaker(infra.DefaultCBConfig()), t.TempDir(), t.TempDir())

	seedFiscalConfig(st, true)
	first := seedCompletedSale(st, "dinheiro")
	second := seedCompletedSale(st, "debito")

	doc, err := svc.IssueNFCe(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, "AUTORIZADA", doc.Status)
	assert.Equal(t, int64(1), doc.Number)
	assert.Len(t, doc.AccessKey, 44)
	require.NotNil(t, doc.Protocol)
	assert.Equal(t, "135240000012345", *doc.Protocol)
	assert.NotEmpty(t, doc.QRCodeURL)
	assert.NotNil(t, doc.PDFPath)

	// The legal sequence is strictly monotonic across sales.
	doc2, err := svc.IssueNFCe(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), doc2.Number)
	assert.NotEqual(t, doc.AccessKey, doc2.AccessKey)
}

func TestIssueNFCe_IdempotentPerSale(t *testing.T) {
	reg, st := newMemRegistry()
	srv := authorizingGateway(t)
	svc := NewFiscalService(reg, infra.NewSefazClient(srv.URL, time.Second),
		infra.NewCircuitBreaker(infra.DefaultCBConfig()), "", t.TempDir())

	seedFiscalConfig(st, true)
	sale := seedCompletedSale(st, "dinheiro")

	doc, err := svc.IssueNFCe(context.Background(), sale.ID)
	require.NoError(t, err)
	again, err := svc.IssueNFCe(context.Background(), sale.ID)
	require.NoError(t, err)

	assert.Equal(t, doc.ID, again.ID)
	assert.Equal(t, int64(2), st.fiscalConfig.NextNumber) // no second allocation
}

func TestIssueNFCe_WithoutConfig(t *testing.T) {
	reg, st := newMemRegistry()
	svc := NewFiscalService(reg, infra.NewSefazClient("", time.Second), fastCB(), "", "")
	sale := seedCompletedSale(st, "dinheiro")

	_, err := svc.IssueNFCe(context.Background(), sale.ID)
	assert.True(t, apperr.Is(err, apperr.KindState))
}

func TestIssueNFCe_WithoutCertificate(t *testing.T) {
	reg, st := newMemRegistry()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	t.Cleanup(srv.Close)
	svc := NewFiscalService(reg, infra.NewSefazClient(srv.URL, time.Second), fastCB(), "", "")

	seedFiscalConfig(st, false)
	sale := seedCompletedSale(st, "dinheiro")

	doc, err := svc.IssueNFCe(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "SEM_CERTIFICADO", doc.Status)
	assert.Equal(t, int64(1), doc.Number)
	assert.Len(t, doc.AccessKey, 44)
	// Never transmitted
	assert.Equal(t, int32(0), hits.Load())
}

func TestIssueNFCe_ExpiredCertificate(t *testing.T) {
	reg, st := newMemRegistry()
	svc := NewFiscalService(reg, infra.NewSefazClient("", time.Second), fastCB(), "", "")

	cfg := seedFiscalConfig(st, true)
	expired := time.Now().Add(-time.Hour)
	cfg.CertExpiresAt = &expired
	sale := seedCompletedSale(st, "dinheiro")

	_, err := svc.IssueNFCe(context.Background(), sale.ID)
	assert.True(t, apperr.Is(err, apperr.KindCertificate))
	// The failed attempt must not burn a position in the sequence.
	assert.Equal(t, int64(1), cfg.NextNumber)
}

func TestIssueNFCe_SaleNotCompleted(t *testing.T) {
	reg, st := newMemRegistry()
	svc := NewFiscalService(reg, infra.NewSefazClient("", time.Second), fastCB(), "", "")
	seedFiscalConfig(st, true)
	sale := seedCompletedSale(st, "dinheiro")
	sale.Status = "CANCELLED"

	_, err := svc.IssueNFCe(context.Background(), sale.ID)
	assert.True(t, apperr.Is(err, apperr.KindState))
}

func TestIssueNFCe_GatewayDownSchedulesRetry(t *testing.T) {
	reg, st := newMemRegistry()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{
		FailureThreshold: 1, SuccessThreshold: 1, OpenTimeout: time.Hour,
	})
	svc := NewFiscalService(reg, infra.NewSefazClient(srv.URL, time.Second), cb, "", "")

	seedFiscalConfig(st, true)
	sale := seedCompletedSale(st, "dinheiro")

	doc, err := svc.IssueNFCe(context.Background(), sale.ID)
	require.NoError(t, err) // transport failure is not the caller's error
	assert.Equal(t, "PENDENTE", doc.Status)
	assert.Equal(t, 1, doc.RetryCount)
	require.NotNil(t, doc.LastError)

	stored, err := reg.Fiscal.FindDocumentByID(context.Background(), doc.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.NextRetryAt)
	assert.True(t, stored.NextRetryAt.After(time.Now()))
}

func TestIssueNFCe_RejectedIsFinal(t *testing.T) {
	reg, st := newMemRegistry()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"Rejeição 539: duplicidade de NF-e"}`))
	}))
	t.Cleanup(srv.Close)
	svc := NewFiscalService(reg, infra.NewSefazClient(srv.URL, time.Second),
		infra.NewCircuitBreaker(infra.DefaultCBConfig()), "", "")

	seedFiscalConfig(st, true)
	sale := seedCompletedSale(st, "dinheiro")

	doc, err := svc.IssueNFCe(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "REJEITADA", doc.Status)
	require.NotNil(t, doc.LastError)
	assert.Contains(t, *doc.LastError, "539")

	// A rejection is SEFAZ's verdict on the content; retrying is pointless.
	_, err = svc.RetryDocument(context.Background(), doc.ID)
	assert.True(t, apperr.Is(err, apperr.KindState))
}

func TestRetryDocument_SucceedsAfterOutage(t *testing.T) {
	reg, st := newMemRegistry()
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"protocol":"135240000054321"}`))
	}))
	t.Cleanup(srv.Close)
	svc := NewFiscalService(reg, infra.NewSefazClient(srv.URL, time.Second), fastCB(), "", t.TempDir())

	seedFiscalConfig(st, true)
	sale := seedCompletedSale(st, "dinheiro")

	doc, err := svc.IssueNFCe(context.Background(), sale.ID)
	require.NoError(t, err)
	require.Equal(t, "PENDENTE", doc.Status)

	healthy.Store(true)
	time.Sleep(20 * time.Millisecond) // let the breaker move to half-open

	retried, err := svc.RetryDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "AUTORIZADA", retried.Status)
	assert.Equal(t, doc.Number, retried.Number) // same allocated number
	require.NotNil(t, retried.Protocol)
}

func TestProcessDueRetries(t *testing.T) {
	reg, st := newMemRegistry()
	srv := authorizingGateway(t)
	svc := NewFiscalService(reg, infra.NewSefazClient(srv.URL, time.Second),
		infra.NewCircuitBreaker(infra.DefaultCBConfig()), "", t.TempDir())

	seedFiscalConfig(st, true)
	sale := seedCompletedSale(st, "dinheiro")

	due := time.Now().Add(-time.Minute)
	doc := &model.FiscalDocument{
		SaleID: sale.ID, Number: 7, Series: 1,
		AccessKey: "35240812345678000195650010000000071000000076",
		Total:     sale.Total, Status: "PENDENTE",
		RetryCount: 2, NextRetryAt: &due,
	}
	require.NoError(t, reg.Fiscal.CreateDocument(context.Background(), doc))

	attempted, err := svc.ProcessDueRetries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, attempted)

	stored, err := reg.Fiscal.FindDocumentByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "AUTORIZADA", stored.Status)
	assert.Nil(t, stored.NextRetryAt)
}

func TestCancelDocument_LocalStates(t *testing.T) {
	reg, st := newMemRegistry()
	svc := NewFiscalService(reg, infra.NewSefazClient("", time.Second), fastCB(), "", "")
	seedFiscalConfig(st, false)
	sale := seedCompletedSale(st, "dinheiro")

	doc, err := svc.IssueNFCe(context.Background(), sale.ID)
	require.NoError(t, err)
	require.Equal(t, "SEM_CERTIFICADO", doc.Status)

	cancelled, err := svc.CancelDocument(context.Background(), doc.ID, "Emitida por engano")
	require.NoError(t, err)
	assert.Equal(t, "CANCELADA", cancelled.Status)

	// Cancelling again is a no-op
	again, err := svc.CancelDocument(context.Background(), doc.ID, "De novo")
	require.NoError(t, err)
	assert.Equal(t, "CANCELADA", again.Status)
}

func TestCancelDocument_AuthorizedGoesThroughSefaz(t *testing.T) {
	reg, st := newMemRegistry()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"success":true,"protocol":"135240000099999"}`))
	}))
	t.Cleanup(srv.Close)
	svc := NewFiscalService(reg, infra.NewSefazClient(srv.URL, time.Second),
		infra.NewCircuitBreaker(infra.DefaultCBConfig()), "", t.TempDir())

	seedFiscalConfig(st, true)
	sale := seedCompletedSale(st, "dinheiro")
	doc, err := svc.IssueNFCe(context.Background(), sale.ID)
	require.NoError(t, err)
	require.Equal(t, "AUTORIZADA", doc.Status)
	issueHits := hits.Load()

	cancelled, err := svc.CancelDocument(context.Background(), doc.ID, "Devolução da mercadoria")
	require.NoError(t, err)
	assert.Equal(t, "CANCELADA", cancelled.Status)
	// The cancellation event went over the wire
	assert.Equal(t, issueHits+1, hits.Load())
}

func TestCancelDocument_RejectedCannotBeCancelled(t *testing.T) {
	reg, st := newMemRegistry()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"Rejeição 204"}`))
	}))
	t.Cleanup(srv.Close)
	svc := NewFiscalService(reg, infra.NewSefazClient(srv.URL, time.Second),
		infra.NewCircuitBreaker(infra.DefaultCBConfig()), "", "")

	seedFiscalConfig(st, true)
	sale := seedCompletedSale(st, "dinheiro")
	doc, err := svc.IssueNFCe(context.Background(), sale.ID)
	require.NoError(t, err)
	require.Equal(t, "REJEITADA", doc.Status)

	_, err = svc.CancelDocument(context.Background(), doc.ID, "Tentativa inválida")
	assert.True(t, apperr.Is(err, apperr.KindState))
}

func TestGeneratePix(t *testing.T) {
	reg, st := newMemRegistry()
	svc := NewFiscalService(reg, infra.NewSefazClient("", time.Second), fastCB(), "", "")

	seedFiscalConfig(st, false)
	_, err := svc.GeneratePix(context.Background(), dto.GeneratePixRequest{
		Amount: decimal.NewFromInt(25),
	})
	assert.True(t, apperr.Is(err, apperr.KindState)) // no key configured

	st.fiscalConfig.PixKey = "loja@bompreco.com.br"
	st.fiscalConfig.PixMerchantName = "Bom Preço"
	st.fiscalConfig.PixMerchantCity = "São Paulo"

	charge, err := svc.GeneratePix(context.Background(), dto.GeneratePixRequest{
		Amount: decimal.NewFromInt(25), Description: "Pedido balcão",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, charge.TxID)
	assert.True(t, strings.HasPrefix(charge.BRCode, "000201"))
	assert.Equal(t, "25", charge.Amount.String())
}

func TestIssueNFCe_PixPaymentCreatesCharge(t *testing.T) {
	reg, st := newMemRegistry()
	svc := NewFiscalService(reg, infra.NewSefazClient("", time.Second), fastCB(), "", "")

	cfg := seedFiscalConfig(st, false)
	cfg.PixKey = "11999998888"
	cfg.PixMerchantName = "Bom Preço"
	cfg.PixMerchantCity = "São Paulo"
	sale := seedCompletedSale(st, "pix")

	_, err := svc.IssueNFCe(context.Background(), sale.ID)
	require.NoError(t, err)

	charges, err := svc.ListPixBySale(context.Background(), sale.ID)
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.Equal(t, "10", charges[0].Amount.String())
	assert.NotEmpty(t, charges[0].BRCode)
}
