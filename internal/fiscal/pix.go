package fiscal

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PixExpiry is how long a generated charge stays payable.
const PixExpiry = 30 * time.Minute

// emvMaxValueLen is the largest value a TLV field can carry: lengths are
// encoded with two decimal digits.
const emvMaxValueLen = 99

// PixParams feeds the BR Code generator. MerchantName and MerchantCity are
// normalized to the EMV charset (uppercase ASCII) before encoding.
type PixParams struct {
	Key          string
	MerchantName string
	MerchantCity string
	Amount       decimal.Decimal
	TxID         string
	Description  string
}

// Charge is the result of BuildBRCode.
type Charge struct {
	BRCode    string
	TxID      string
	Amount    decimal.Decimal
	ExpiresAt time.Time
}

// BuildBRCode assembles a static EMV BR Code (PIX copia-e-cola) per the
// Banco Central do Brasil spec: TLV fields terminated by a CRC16 in field 63.
func BuildBRCode(p PixParams) (*Charge, error) {
	if p.Key == "" {
		return nil, fmt.Errorf("chave PIX não configurada")
	}
	if !p.Amount.IsPositive() {
		return nil, fmt.Errorf("valor da cobrança deve ser positivo")
	}
	txID := p.TxID
	if txID == "" {
		txID = GenerateTxID()
	}

	name := truncate(normalizeEMV(p.MerchantName), 25)
	city := truncate(normalizeEMV(p.MerchantCity), 15)
	if name == "" {
		name = "LOJA"
	}
	if city == "" {
		city = "SAO PAULO"
	}

	// Merchant account information (field 26): GUI + key + optional description.
	// EMV lengths are two digits, so the assembled value must fit in 99 chars;
	// the description yields whatever room the key leaves.
	account := tlv("00", "br.gov.bcb.pix") + tlv("01", p.Key)
	if len(account) > emvMaxValueLen {
		return nil, fmt.Errorf("chave PIX longa demais para o BR Code")
	}
	if room := emvMaxValueLen - len(account) - 4; p.Description != "" && room > 0 {
		if room > 40 {
			room = 40
		}
		account += tlv("02", truncate(normalizeEMV(p.Description), room))
	}

	var b strings.Builder
	b.WriteString(tlv("00", "01"))      // payload format indicator
	b.WriteString(tlv("26", account))   // merchant account information
	b.WriteString(tlv("52", "0000"))    // merchant category code
	b.WriteString(tlv("53", "986"))     // currency BRL
	b.WriteString(tlv("54", p.Amount.StringFixed(2)))
	b.WriteString(tlv("58", "BR"))
	b.WriteString(tlv("59", name))
	b.WriteString(tlv("60", city))
	b.WriteString(tlv("62", tlv("05", txID))) // additional data: txid
	b.WriteString("6304")                     // CRC placeholder, length always 04

	code := b.String()
	code += crc16(code)

	return &Charge{
		BRCode:    code,
		TxID:      txID,
		Amount:    p.Amount,
		ExpiresAt: time.Now().Add(PixExpiry),
	}, nil
}

// ValidateBRCode re-computes the CRC over a BR Code and checks the trailer.
func ValidateBRCode(code string) bool {
	if len(code) < 8 {
		return false
	}
	idx := strings.LastIndex(code, "6304")
	if idx < 0 || idx != len(code)-8 {
		return false
	}
	return crc16(code[:idx+4]) == code[idx+4:]
}

// DecodeBRCode extracts the top-level TLV fields of a BR Code into a map
// keyed by field ID. Nested fields (26, 62) keep their raw value.
func DecodeBRCode(code string) (map[string]string, error) {
	fields := make(map[string]string)
	for i := 0; i < len(code); {
		if i+4 > len(code) {
			return nil, fmt.Errorf("código PIX truncado na posição %d", i)
		}
		id := code[i : i+2]
		var length int
		if _, err := fmt.Sscanf(code[i+2:i+4], "%02d", &length); err != nil {
			return nil, fmt.Errorf("comprimento inválido no campo %s", id)
		}
		if i+4+length > len(code) {
			return nil, fmt.Errorf("campo %s excede o código", id)
		}
		fields[id] = code[i+4 : i+4+length]
		i += 4 + length
	}
	return fields, nil
}

// GenerateTxID returns a 25-char alphanumeric transaction id.
func GenerateTxID() string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	buf := make([]byte, 25)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("PDV%022d", time.Now().UnixNano())
	}
	for i, v := range buf {
		buf[i] = charset[int(v)%len(charset)]
	}
	return string(buf)
}

func tlv(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

// crc16 implements CRC16-CCITT (polynomial 0x1021, initial 0xFFFF) as
// required by the EMV QRCPS spec, returned as 4 uppercase hex digits.
func crc16(data string) string {
	crc := uint16(0xFFFF)
	for i := 0; i < len(data); i++ {
		crc ^= uint16(data[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return fmt.Sprintf("%04X", crc)
}

var emvReplacer = strings.NewReplacer(
	"á", "A", "à", "A", "â", "A", "ã", "A", "ä", "A",
	"Á", "A", "À", "A", "Â", "A", "Ã", "A", "Ä", "A",
	"é", "E", "ê", "E", "É", "E", "Ê", "E",
	"í", "I", "Í", "I",
	"ó", "O", "ô", "O", "õ", "O", "Ó", "O", "Ô", "O", "Õ", "O",
	"ú", "U", "ü", "U", "Ú", "U", "Ü", "U",
	"ç", "C", "Ç", "C",
)

// normalizeEMV uppercases and strips characters outside the EMV merchant
// name/city charset, transliterating the Portuguese accented letters first.
func normalizeEMV(s string) string {
	s = strings.ToUpper(emvReplacer.Replace(s))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
