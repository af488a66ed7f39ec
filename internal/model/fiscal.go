package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FiscalConfig is the single active issuer configuration.
// Environment: "homologacao" | "producao" — switches the SEFAZ endpoint only.
// NextNumber is the monotonic NFC-e counter for NfceSeries; it is only ever
// advanced through FiscalRepository.AllocateNumber inside a transaction.
type FiscalConfig struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CNPJ         string    `gorm:"type:varchar(14);not null;column:cnpj"`
	Name         string    `gorm:"not null"`
	FantasyName  string    `gorm:"not null"`
	IE           string    `gorm:"type:varchar(20);not null;column:ie"`
	Street       string
	Number       string
	Neighborhood string
	City         string
	CityCode     string `gorm:"type:varchar(7)"` // IBGE code
	State        string `gorm:"type:varchar(2)"`
	ZipCode      string `gorm:"type:varchar(8)"`

	PixKey          string
	PixMerchantName string
	PixMerchantCity string

	Environment string `gorm:"type:varchar(15);not null;default:'homologacao'"`
	NfceSeries  int    `gorm:"not null;default:1"`
	NextNumber  int64  `gorm:"not null;default:1"`

	// Certificate is the A1 PFX blob, base64-encoded. Empty = issue without
	// SEFAZ submission (SEM_CERTIFICADO).
	Certificate     string `gorm:"type:text"`
	CertificatePass string
	CertExpiresAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FiscalDocument stores an NFC-e and its authorization lifecycle.
// Status: "PENDENTE" | "AUTORIZADA" | "REJEITADA" | "SEM_CERTIFICADO" |
// "CANCELADA" | "ERRO".
// Number is allocated exactly once; retries after SEFAZ failures reuse it so
// the legally-required sequence never gains gaps.
type FiscalDocument struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Number    int64     `gorm:"not null"`
	Series    int       `gorm:"not null"`
	AccessKey string    `gorm:"type:varchar(44);uniqueIndex;not null"`
	XML       string    `gorm:"type:text;column:xml"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status    string          `gorm:"type:varchar(20);not null;default:'PENDENTE'"`
	Protocol  *string         `gorm:"type:varchar(30)"`
	QRCodeURL string          `gorm:"column:qr_code_url"`
	PDFPath   *string         `gorm:"column:pdf_path"`
	// Retry bookkeeping — consumed by worker.StartRetryCron.
	RetryCount  int        `gorm:"not null;default:0"`
	NextRetryAt *time.Time `gorm:"column:next_retry_at"`
	LastError   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PixCharge is an EMV BR Code payment charge. Immutable once issued; it
// expires naturally at ExpiresAt and is never actively invalidated.
type PixCharge struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentID *uuid.UUID `gorm:"type:uuid;index"`
	SaleID     *uuid.UUID `gorm:"type:uuid;index"`
	TxID       string     `gorm:"type:varchar(25);uniqueIndex;not null;column:tx_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	BRCode     string          `gorm:"type:text;not null;column:br_code"`
	ExpiresAt  time.Time
	CreatedAt  time.Time
}
