package service

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/techcodes/backend/internal/models"
)

const DefaultTokenPlaceholder = "__________"

// Message templates. Classic reproduces the legacy dispatch text: an empty
// "Tipo de Orden" line and no escalation reason line. Extended fills the
// order type and adds the reason.
const (
	TemplateExtended = "extended"
	TemplateClassic  = "classic"
)

// pictographs matches the decorative emoji blocks used in the message labels.
var pictographs = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}\x{2700}-\x{27BF}\x{24C2}-\x{1F251}]+`)

// Projector renders dispatch messages and outbound links.
type Projector struct {
	BaseURL          string
	CountryCode      string
	TokenPlaceholder string
	StripPictographs bool
	Template         string
}

// Project builds the exported record for a sequenced ticket.
func (p Projector) Project(s Sequenced) models.Record {
	rec := models.Record{
		Ticket:        s.Ticket,
		Category:      Classify(s.Ticket.EscalationReason),
		TechnicianKey: s.TechnicianKey,
		Sequence:      s.Sequence,
		Sent:          s.Ticket.MarkedSent,
	}
	rec.Code = Compose(rec.Category, s.Ticket.Timestamp, s.Ticket.Technician, s.Sequence)
	rec.Message = p.Message(rec, "")
	rec.Link = p.Link(rec.Radio, rec.Message)
	return rec
}

// Message renders the dispatch text. An empty token renders the placeholder.
func (p Projector) Message(rec models.Record, token string) string {
	if strings.TrimSpace(token) == "" {
		token = p.placeholder()
	}
	lines := []string{
		"🚐 # de Carro: " + rec.Vehicle,
		"👷Tecnico: " + rec.Technician,
		"📲Contratista: " + rec.Contractor,
		"📞Radio del Técnico: " + rec.Radio,
		"👤Nombre del cliente: " + rec.Client,
		"✏️Numero de Suscriptor: " + rec.Subscriber,
		"🌐Numero de SA: " + rec.ServiceAddress,
	}
	if p.Template == TemplateClassic {
		lines = append(lines,
			"📝Tipo de Orden: ",
			"🚑Dolor del Cliente: " + rec.ClientPain,
			"📩Solicitud: " + rec.Request,
			"🛰️Diagnóstico: " + rec.Diagnosis,
		)
	} else {
		lines = append(lines,
			"📝Tipo de Orden: " + rec.EscalationType,
			"🚑Dolor del Cliente: " + rec.ClientPain,
			"📩Solicitud: " + rec.Request,
			"🛰️Diagnóstico: " + rec.Diagnosis,
			"❗Razón de Escalamiento: " + rec.EscalationReason,
		)
	}
	lines = append(lines,
		"📍Coordenada: " + rec.Coordinate,
		"🔐Token: " + token,
		"🧾 Código Técnico: " + rec.Code,
		"⚠️ *Recuerda ingresar el Token antes de enviar*",
	)
	return strings.Join(lines, "\n")
}

// Link builds the messaging deep link. It never fails; a malformed phone
// only yields a link that does not open a chat.
func (p Projector) Link(radio, message string) string {
	text := message
	if p.StripPictographs {
		text = StripPictographs(text)
	}
	base := strings.TrimRight(p.BaseURL, "/")
	return fmt.Sprintf("%s/%s%s?text=%s", base, p.CountryCode, SanitizePhone(radio), EncodeText(text))
}

func (p Projector) placeholder() string {
	if p.TokenPlaceholder == "" {
		return DefaultTokenPlaceholder
	}
	return p.TokenPlaceholder
}

// SanitizePhone drops spaces and a leading "+". Anything else is kept.
func SanitizePhone(radio string) string {
	return strings.TrimLeft(strings.ReplaceAll(radio, " ", ""), "+")
}

func StripPictographs(s string) string {
	return pictographs.ReplaceAllString(s, "")
}

// EncodeText percent-encodes s for the text query parameter: spaces become
// %20 and "/" is left as is.
func EncodeText(s string) string {
	e := url.QueryEscape(s)
	e = strings.ReplaceAll(e, "+", "%20")
	return strings.ReplaceAll(e, "%2F", "/")
}
