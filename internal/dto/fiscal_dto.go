package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type FiscalConfigRequest struct {
	CNPJ         string `json:"cnpj" binding:"required,len=14"`
	Name         string `json:"name" binding:"required"`
	FantasyName  string `json:"fantasyName" binding:"required"`
	IE           string `json:"ie" binding:"required"`
	Street       string `json:"street" binding:"required"`
	Number       string `json:"number" binding:"required"`
	Neighborhood string `json:"neighborhood" binding:"required"`
	City         string `json:"city" binding:"required"`
	CityCode     string `json:"cityCode" binding:"required,len=7"`
	State        string `json:"state" binding:"required,len=2"`
	ZipCode      string `json:"zipCode" binding:"required,len=8"`

	PixKey          string `json:"pixKey"`
	PixMerchantName string `json:"pixMerchantName"`
	PixMerchantCity string `json:"pixMerchantCity"`

	Environment string `json:"environment" binding:"required,oneof=homologacao producao"`
	NfceSeries  int    `json:"nfceSeries" binding:"omitempty,gt=0"`
}

type UploadCertificateRequest struct {
	Certificate string `json:"certificate" binding:"required"` // base64 PFX
	Password    string `json:"password" binding:"required"`
}

type FiscalConfigResponse struct {
	ID             uuid.UUID  `json:"id"`
	CNPJ           string     `json:"cnpj"`
	Name           string     `json:"name"`
	FantasyName    string     `json:"fantasyName"`
	Environment    string     `json:"environment"`
	NfceSeries     int        `json:"nfceSeries"`
	NextNumber     int64      `json:"nextNumber"`
	HasCertificate bool       `json:"hasCertificate"`
	CertExpiresAt  *time.Time `json:"certExpiresAt,omitempty"`
	PixKey         string     `json:"pixKey,omitempty"`
}

type IssueNFCeRequest struct {
	SaleID uuid.UUID `json:"saleId" binding:"required"`
}

type FiscalDocumentResponse struct {
	ID         uuid.UUID       `json:"id"`
	SaleID     uuid.UUID       `json:"saleId"`
	Number     int64           `json:"number"`
	Series     int             `json:"series"`
	AccessKey  string          `json:"accessKey"`
	Total      decimal.Decimal `json:"total"`
	Status     string          `json:"status"`
	Protocol   *string         `json:"protocol,omitempty"`
	QRCodeURL  string          `json:"qrCodeUrl,omitempty"`
	PDFPath    *string         `json:"pdfPath,omitempty"`
	RetryCount int             `json:"retryCount"`
	LastError  *string         `json:"lastError,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type GeneratePixRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	SaleID      *uuid.UUID      `json:"saleId"`
	Description string          `json:"description" binding:"omitempty,max=40"`
}

type PixChargeResponse struct {
	ID        uuid.UUID       `json:"id"`
	TxID      string          `json:"txId"`
	Amount    decimal.Decimal `json:"amount"`
	BRCode    string          `json:"brCode"`
	ExpiresAt time.Time       `json:"expiresAt"`
}
