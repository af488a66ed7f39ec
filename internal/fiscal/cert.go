package fiscal

import (
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

// CertInfo summarizes a decoded A1 certificate.
type CertInfo struct {
	Subject   string
	Issuer    string
	NotBefore time.Time
	NotAfter  time.Time
}

// DecodeCertificate opens a base64-encoded PFX blob with the given password
// and returns the leaf certificate metadata.
func DecodeCertificate(pfxBase64, password string) (*CertInfo, error) {
	raw, err := base64.StdEncoding.DecodeString(pfxBase64)
	if err != nil {
		return nil, fmt.Errorf("certificado não está em base64 válido: %w", err)
	}
	_, cert, _, err := pkcs12.DecodeChain(raw, password)
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir o certificado A1: %w", err)
	}
	return infoFrom(cert), nil
}

// CheckValidity decodes the certificate and rejects it when expired or not
// yet valid at the given instant.
func CheckValidity(pfxBase64, password string, now time.Time) (*CertInfo, error) {
	info, err := DecodeCertificate(pfxBase64, password)
	if err != nil {
		return nil, err
	}
	if now.Before(info.NotBefore) {
		return info, fmt.Errorf("certificado ainda não é válido (início em %s)", info.NotBefore.Format("02/01/2006"))
	}
	if now.After(info.NotAfter) {
		return info, fmt.Errorf("certificado expirado em %s", info.NotAfter.Format("02/01/2006"))
	}
	return info, nil
}

func infoFrom(cert *x509.Certificate) *CertInfo {
	return &CertInfo{
		Subject:   cert.Subject.CommonName,
		Issuer:    cert.Issuer.CommonName,
		NotBefore: cert.NotBefore,
		NotAfter:  cert.NotAfter,
	}
}
