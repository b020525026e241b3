package service

import (
	"strings"
	"testing"

	"github.com/techcodes/backend/internal/models"
)

func TestSanitizePhone(t *testing.T) {
	cases := map[string]string{
		"6123 4567":   "61234567",
		"+6123 4567":  "61234567",
		"6123-4567":   "6123-4567",
		"":            "",
		"radio 12 ab": "radio12ab",
	}
	for in, want := range cases {
		if got := SanitizePhone(in); got != want {
			t.Fatalf("SanitizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEncodeText(t *testing.T) {
	if got := EncodeText("a b/c&d=é"); got != "a%20b/c%26d%3D%C3%A9" {
		t.Fatalf("unexpected encoding %q", got)
	}
}

func TestStripPictographs(t *testing.T) {
	got := StripPictographs("🚐 # de Carro: 12\n✏️Numero\n🛰️Diagnóstico: señal")
	want := " # de Carro: 12\nNumero\nDiagnóstico: señal"
	if got != want {
		t.Fatalf("unexpected strip result %q", got)
	}
}

func testRecord() models.Record {
	return models.Record{
		Ticket: models.Ticket{
			Row:            2,
			Vehicle:        "12",
			Technician:     "Juan Perez",
			Contractor:     "ACME",
			Radio:          "6123 4567",
			Client:         "Maria Lopez",
			EscalationType: "Soporte",
			Diagnosis:      "NAP lleno en poste 4",
		},
		Code: "413908MJP2",
	}
}

func TestMessageTemplate(t *testing.T) {
	p := testPipeline().Projector
	msg := p.Message(testRecord(), "")
	for _, want := range []string{
		"🚐 # de Carro: 12",
		"👷Tecnico: Juan Perez",
		"📞Radio del Técnico: 6123 4567",
		"📝Tipo de Orden: Soporte",
		"🛰️Diagnóstico: NAP lleno en poste 4",
		"🔐Token: __________",
		"🧾 Código Técnico: 413908MJP2",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
	if !strings.Contains(p.Message(testRecord(), "778899"), "🔐Token: 778899") {
		t.Fatalf("expected manual token in message")
	}
}

func TestLinkStripsPictographs(t *testing.T) {
	p := testPipeline().Projector
	rec := testRecord()
	link := p.Link(rec.Radio, p.Message(rec, ""))
	if !strings.HasPrefix(link, "https://wa.me/50761234567?text=") {
		t.Fatalf("unexpected link prefix: %s", link)
	}
	if strings.Contains(link, "%F0%9F%9A%90") {
		t.Fatalf("expected van pictograph to be stripped: %s", link)
	}
	if !strings.Contains(link, "413908MJP2") {
		t.Fatalf("expected code in link text")
	}

	p.StripPictographs = false
	if !strings.Contains(p.Link(rec.Radio, p.Message(rec, "")), "%F0%9F%9A%90") {
		t.Fatalf("expected pictographs kept when stripping is off")
	}
}

func TestProjectDerivesEverything(t *testing.T) {
	p := testPipeline().Projector
	tk := testRecord().Ticket
	tk.EscalationReason = "NAP lleno en poste 4"
	tk.Timestamp = at(5, 10)
	rec := p.Project(Sequenced{Ticket: tk, TechnicianKey: "JP", Sequence: 2})
	if rec.Category != models.CategoryTapNap {
		t.Fatalf("expected TAP/NAP, got %v", rec.Category)
	}
	if rec.Code != "413908MJP2" {
		t.Fatalf("unexpected code %q", rec.Code)
	}
	if rec.Sent {
		t.Fatalf("expected sent to default to false")
	}
	if !strings.Contains(rec.Message, rec.Code) || rec.Link == "" {
		t.Fatalf("expected message and link to be rendered")
	}
}

func TestMessageClassicTemplate(t *testing.T) {
	p := testPipeline().Projector
	p.Template = TemplateClassic
	rec := testRecord()
	rec.EscalationReason = "NAP lleno"
	msg := p.Message(rec, "")

	lines := strings.Split(msg, "\n")
	if len(lines) != 15 {
		t.Fatalf("expected 15 lines, got %d:\n%s", len(lines), msg)
	}
	if lines[7] != "📝Tipo de Orden: " {
		t.Fatalf("expected empty order type line, got %q", lines[7])
	}
	if strings.Contains(msg, "Razón de Escalamiento") {
		t.Fatalf("classic template must not carry the reason line:\n%s", msg)
	}

	p.Template = TemplateExtended
	extended := strings.Split(p.Message(rec, ""), "\n")
	if len(extended) != 16 || extended[7] != "📝Tipo de Orden: Soporte" {
		t.Fatalf("unexpected extended template: %v", extended)
	}
}
