// Package fiscal implements the NFC-e document assembly (SEFAZ layout 4.00),
// the PIX BR Code generator and A1 certificate handling. Everything here is
// pure computation — persistence and transport live in repository/infra.
package fiscal

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Item is one NFC-e product line.
type Item struct {
	Code      string
	Name      string
	NCM       string
	CFOP      string
	Quantity  int
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

// Address is the emitter's fiscal address.
type Address struct {
	Street       string
	Number       string
	Neighborhood string
	City         string
	CityCode     string // IBGE code
	State        string // UF, two letters
	ZipCode      string
}

// Emitter identifies the issuing company.
type Emitter struct {
	CNPJ        string
	Name        string
	FantasyName string
	IE          string
	Address     Address
}

// Customer is the optional document recipient.
type Customer struct {
	CPF  string
	Name string
}

// Document carries everything needed to render one NFC-e.
type Document struct {
	Number      int64
	Series      int
	IssuedAt    time.Time
	Items       []Item
	Total       decimal.Decimal
	Emitter     Emitter
	Customer    *Customer
	Environment string // "homologacao" | "producao"
}

// ufCodes maps UF initials to the SEFAZ numeric state code used in the access
// key and the cUF element.
var ufCodes = map[string]string{
	"AC": "12", "AL": "27", "AP": "16", "AM": "13", "BA": "29", "CE": "23",
	"DF": "53", "ES": "32", "GO": "52", "MA": "21", "MT": "51", "MS": "50",
	"MG": "31", "PA": "15", "PB": "25", "PR": "41", "PE": "26", "PI": "22",
	"RJ": "33", "RN": "24", "RS": "43", "RO": "11", "RR": "14", "SC": "42",
	"SP": "35", "SE": "28", "TO": "17",
}

func ufCode(uf string) string {
	if code, ok := ufCodes[strings.ToUpper(uf)]; ok {
		return code
	}
	return "35"
}

func tpAmb(environment string) string {
	if environment == "producao" {
		return "1"
	}
	return "2"
}

// AccessKey builds the 44-digit NFC-e access key:
// cUF(2) AAMM(4) CNPJ(14) mod(2) serie(3) nNF(9) tpEmis(1) cNF(8) DV(1).
// cNF is the random numeric code that also goes into the <cNF> element, so
// callers generate it once via RandomNumericCode and pass it here.
func AccessKey(doc *Document, cnf string) string {
	uf := ufCode(doc.Emitter.Address.State)
	aamm := doc.IssuedAt.Format("0601")
	cnpj := digitsOnly(doc.Emitter.CNPJ)
	serie := fmt.Sprintf("%03d", doc.Series)
	numero := fmt.Sprintf("%09d", doc.Number)

	base := uf + aamm + cnpj + "65" + serie + numero + "1" + cnf
	return base + checkDigit(base)
}

// checkDigit computes the mod-11 verifier over the 43 key digits with the
// 2..9 repeating weight cycle, applied right to left.
func checkDigit(key string) string {
	weight := 2
	sum := 0
	for i := len(key) - 1; i >= 0; i-- {
		sum += int(key[i]-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}
	dv := 11 - sum%11
	if dv >= 10 {
		dv = 0
	}
	return fmt.Sprintf("%d", dv)
}

// RandomNumericCode returns the 8-digit random cNF component.
func RandomNumericCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(90000000))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to a fixed code rather than aborting issuance.
		return "10000001"
	}
	return fmt.Sprintf("%08d", n.Int64()+10000000)
}

// BuildXML renders the nfeProc envelope for one NFC-e (model 65, layout 4.00,
// Simples Nacional tax profile: ICMSSN102 + PIS/COFINS NT).
// Returns the XML and the access key embedded in it.
func BuildXML(doc *Document) (xml string, accessKey string) {
	cnf := RandomNumericCode()
	accessKey = AccessKey(doc, cnf)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">`)
	b.WriteString(`<NFe xmlns="http://www.portalfiscal.inf.br/nfe">`)
	fmt.Fprintf(&b, `<infNFe versao="4.00" Id="NFe%s">`, accessKey)

	// ide
	b.WriteString("<ide>")
	ele(&b, "cUF", ufCode(doc.Emitter.Address.State))
	ele(&b, "cNF", cnf)
	ele(&b, "natOp", "VENDA")
	ele(&b, "mod", "65")
	ele(&b, "serie", fmt.Sprintf("%d", doc.Series))
	ele(&b, "nNF", fmt.Sprintf("%d", doc.Number))
	ele(&b, "dhEmi", doc.IssuedAt.Format(time.RFC3339))
	ele(&b, "tpNF", "1")
	ele(&b, "idDest", "1")
	ele(&b, "cMunFG", doc.Emitter.Address.CityCode)
	ele(&b, "tpImp", "4")
	ele(&b, "tpEmis", "1")
	ele(&b, "cDV", accessKey[43:])
	ele(&b, "tpAmb", tpAmb(doc.Environment))
	ele(&b, "finNFe", "1")
	ele(&b, "indFinal", "1")
	ele(&b, "indPres", "1")
	ele(&b, "procEmi", "0")
	ele(&b, "verProc", "1.0.0")
	b.WriteString("</ide>")

	// emit
	b.WriteString("<emit>")
	ele(&b, "CNPJ", digitsOnly(doc.Emitter.CNPJ))
	ele(&b, "xNome", doc.Emitter.Name)
	ele(&b, "xFant", doc.Emitter.FantasyName)
	b.WriteString("<enderEmit>")
	ele(&b, "xLgr", doc.Emitter.Address.Street)
	ele(&b, "nro", doc.Emitter.Address.Number)
	ele(&b, "xBairro", doc.Emitter.Address.Neighborhood)
	ele(&b, "cMun", doc.Emitter.Address.CityCode)
	ele(&b, "xMun", doc.Emitter.Address.City)
	ele(&b, "UF", doc.Emitter.Address.State)
	ele(&b, "CEP", digitsOnly(doc.Emitter.Address.ZipCode))
	ele(&b, "cPais", "1058")
	ele(&b, "xPais", "Brasil")
	b.WriteString("</enderEmit>")
	ele(&b, "IE", doc.Emitter.IE)
	ele(&b, "CRT", "1")
	b.WriteString("</emit>")

	// dest — only when the customer asked for CPF on the receipt
	if doc.Customer != nil && doc.Customer.CPF != "" {
		b.WriteString("<dest>")
		ele(&b, "CPF", digitsOnly(doc.Customer.CPF))
		if doc.Customer.Name != "" {
			ele(&b, "xNome", doc.Customer.Name)
		}
		ele(&b, "indIEDest", "9")
		b.WriteString("</dest>")
	}

	// det — one element per line item
	for i, item := range doc.Items {
		fmt.Fprintf(&b, `<det nItem="%d">`, i+1)
		b.WriteString("<prod>")
		ele(&b, "cProd", item.Code)
		ele(&b, "cEAN", "SEM GTIN")
		ele(&b, "xProd", item.Name)
		ele(&b, "NCM", item.NCM)
		ele(&b, "CFOP", item.CFOP)
		ele(&b, "uCom", "UN")
		ele(&b, "qCom", fmt.Sprintf("%d.0000", item.Quantity))
		ele(&b, "vUnCom", item.UnitPrice.StringFixed(2))
		ele(&b, "vProd", item.Total.StringFixed(2))
		ele(&b, "cEANTrib", "SEM GTIN")
		ele(&b, "uTrib", "UN")
		ele(&b, "qTrib", fmt.Sprintf("%d.0000", item.Quantity))
		ele(&b, "vUnTrib", item.UnitPrice.StringFixed(2))
		ele(&b, "indTot", "1")
		b.WriteString("</prod>")
		b.WriteString("<imposto>")
		b.WriteString("<ICMS><ICMSSN102>")
		ele(&b, "orig", "0")
		ele(&b, "CSOSN", "102")
		b.WriteString("</ICMSSN102></ICMS>")
		b.WriteString("<PIS><PISNT>")
		ele(&b, "CST", "07")
		b.WriteString("</PISNT></PIS>")
		b.WriteString("<COFINS><COFINSNT>")
		ele(&b, "CST", "07")
		b.WriteString("</COFINSNT></COFINS>")
		b.WriteString("</imposto>")
		b.WriteString("</det>")
	}

	// total
	b.WriteString("<total><ICMSTot>")
	for _, zero := range []string{
		"vBC", "vICMS", "vICMSDeson", "vFCP", "vBCST", "vST", "vFCPST", "vFCPSTRet",
	} {
		ele(&b, zero, "0.00")
	}
	ele(&b, "vProd", doc.Total.StringFixed(2))
	for _, zero := range []string{
		"vFrete", "vSeg", "vDesc", "vII", "vIPI", "vIPIDevol", "vPIS", "vCOFINS", "vOutro",
	} {
		ele(&b, zero, "0.00")
	}
	ele(&b, "vNF", doc.Total.StringFixed(2))
	b.WriteString("</ICMSTot></total>")

	// pag
	b.WriteString("<pag><detPag>")
	ele(&b, "tPag", "01")
	ele(&b, "vPag", doc.Total.StringFixed(2))
	b.WriteString("</detPag></pag>")

	b.WriteString("<infAdic>")
	ele(&b, "infCpl", "NFC-e emitida pelo PDV Fiscal")
	b.WriteString("</infAdic>")

	b.WriteString("</infNFe>")
	b.WriteString("</NFe>")
	b.WriteString("</nfeProc>")

	return b.String(), accessKey
}

// QRCodeURL builds the SEFAZ consultation URL for the NFC-e QR code.
func QRCodeURL(accessKey, baseURL, environment string) string {
	if baseURL == "" {
		baseURL = "https://www.fazenda.sp.gov.br/nfce/qrcode"
	}
	return fmt.Sprintf("%s?chNFe=%s&nVersao=100&tpAmb=%s", baseURL, accessKey, tpAmb(environment))
}

// ValidateXML runs structural sanity checks over a rendered NFC-e.
func ValidateXML(xml string) bool {
	if len(xml) < 100 {
		return false
	}
	required := []string{"<NFe", "<infNFe", "<ide>", "<emit>", "<det", "<total>", "<pag>"}
	for _, tag := range required {
		if !strings.Contains(xml, tag) {
			return false
		}
	}
	return true
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;",
)

func ele(b *strings.Builder, tag, value string) {
	b.WriteString("<")
	b.WriteString(tag)
	b.WriteString(">")
	b.WriteString(xmlEscaper.Replace(value))
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteString(">")
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
