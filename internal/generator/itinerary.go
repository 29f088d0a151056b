package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/motoclube/roleplanner/internal/domain"
)

// Source values recorded on an Itinerary.
const (
	SourceAI    = "ai"
	SourceLocal = "local"
)

// Request is everything a generator needs to plan one ride.
type Request struct {
	Destination domain.Destination
	Criteria    domain.SearchCriteria
	Feasibility *domain.Feasibility
	RiderName   string
}

// Itinerary is a generated ride plan.
type Itinerary struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Stops       []domain.Stop `json:"stops"`
	Tips        []string      `json:"tips"`
	Source      string        `json:"source"`
}

// TotalHours sums the duration of every stop.
func (it Itinerary) TotalHours() float64 {
	var h float64
	for _, s := range it.Stops {
		h += s.DurationHours
	}
	return h
}

// TotalDistanceKm sums the distance of every stop.
func (it Itinerary) TotalDistanceKm() float64 {
	var km float64
	for _, s := range it.Stops {
		km += s.DistanceKm
	}
	return km
}

// ItineraryGenerator plans a ride for a matched destination.
type ItineraryGenerator interface {
	Generate(ctx context.Context, req Request) (Itinerary, error)
}

// AIGenerator asks a TextProvider for a JSON itinerary.
type AIGenerator struct {
	text TextProvider
}

// NewAIGenerator returns a generator backed by text.
func NewAIGenerator(text TextProvider) *AIGenerator {
	return &AIGenerator{text: text}
}

func (g *AIGenerator) Generate(ctx context.Context, req Request) (Itinerary, error) {
	ctx, span := tracer.Start(ctx, "generator.AIGenerator.Generate", trace.WithAttributes(
		attribute.String("destination", req.Destination.Name),
	))
	defer span.End()

	raw, err := g.text.Generate(ctx, Prompt(req))
	if err != nil {
		span.RecordError(err)
		return Itinerary{}, fmt.Errorf("generator.AIGenerator.Generate: %w", err)
	}
	it, err := parseItinerary(raw)
	if err != nil {
		span.RecordError(err)
		return Itinerary{}, fmt.Errorf("generator.AIGenerator.Generate: %w", err)
	}
	it.Source = SourceAI
	return it, nil
}

// Prompt renders the instruction sent to the text provider.
func Prompt(req Request) string {
	d := req.Destination
	var b strings.Builder
	b.WriteString("Você é um planejador de rolês de moto. Monte um roteiro em JSON com os campos ")
	b.WriteString(`"title", "description", "stops" (lista de {"name","description","distance_km","duration_hours"}) e "tips" (lista de textos).`)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Destino: %s\n", d.Name)
	fmt.Fprintf(&b, "Descrição: %s\n", d.Description)
	fmt.Fprintf(&b, "Distância: %.0f km\n", d.DistanceKm)
	fmt.Fprintf(&b, "Tempo de viagem: %s\n", d.TravelTime)
	fmt.Fprintf(&b, "Dificuldade: %s\n", d.Difficulty)
	fmt.Fprintf(&b, "Categoria: %s\n", d.Category)
	if len(d.PointsOfInterest) > 0 {
		fmt.Fprintf(&b, "Pontos de interesse: %s\n", strings.Join(d.PointsOfInterest, ", "))
	}
	fmt.Fprintf(&b, "Saída recomendada: %s\n", d.BestDeparture)
	if w := req.Criteria.Window; w != nil {
		fmt.Fprintf(&b, "Janela do piloto: saída %s, retorno %s\n", w.Departure, w.Return)
	}
	if req.Criteria.BudgetCeiling != nil {
		fmt.Fprintf(&b, "Orçamento máximo: R$ %.2f\n", *req.Criteria.BudgetCeiling)
	}
	if req.RiderName != "" {
		fmt.Fprintf(&b, "Piloto: %s\n", req.RiderName)
	}
	b.WriteString("Responda apenas com o JSON.")
	return b.String()
}

// parseItinerary accepts bare JSON or JSON inside a markdown code fence.
func parseItinerary(raw string) (Itinerary, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	var it Itinerary
	if err := json.Unmarshal([]byte(s), &it); err != nil {
		return Itinerary{}, fmt.Errorf("%w: response is not an itinerary: %v", domain.ErrProvider, err)
	}
	if strings.TrimSpace(it.Title) == "" || len(it.Stops) == 0 {
		return Itinerary{}, fmt.Errorf("%w: itinerary has no title or stops", domain.ErrProvider)
	}
	return it, nil
}

// LocalGenerator builds an itinerary from the catalog entry alone. The same
// request always yields the same itinerary.
type LocalGenerator struct{}

func (LocalGenerator) Generate(_ context.Context, req Request) (Itinerary, error) {
	d := req.Destination
	if err := d.Validate(); err != nil {
		return Itinerary{}, fmt.Errorf("generator.LocalGenerator.Generate: %w", err)
	}

	leg := round1(d.DistanceKm / 2)
	travel := d.TravelTime.MaxHours
	dwell := req.dwellHours()

	stops := make([]domain.Stop, 0, len(d.PointsOfInterest)+2)
	stops = append(stops, domain.Stop{
		Name:          "Saída rumo a " + d.Name,
		Description:   fmt.Sprintf("Saída às %s. Abasteça e confira pneus antes de pegar a estrada.", d.BestDeparture),
		DistanceKm:    leg,
		DurationHours: travel,
	})
	if n := len(d.PointsOfInterest); n > 0 {
		per := round1(dwell / float64(n))
		for _, poi := range d.PointsOfInterest {
			stops = append(stops, domain.Stop{
				Name:          poi,
				Description:   "Parada em " + poi + ".",
				DurationHours: per,
			})
		}
	} else {
		stops = append(stops, domain.Stop{
			Name:          d.Name,
			Description:   d.Description,
			DurationHours: round1(dwell),
		})
	}
	stops = append(stops, domain.Stop{
		Name:          "Retorno",
		Description:   "Volta pelo mesmo caminho, com pausa para descanso a cada duas horas.",
		DistanceKm:    leg,
		DurationHours: travel,
	})

	tips := []string{
		fmt.Sprintf("Custo estimado por piloto: R$ %.2f.", d.Costs.Total()),
	}
	switch d.Difficulty {
	case domain.DifficultyHard:
		tips = append(tips, "Trecho exigente: evite pilotar sozinho e revise freios.")
	case domain.DifficultyModerate:
		tips = append(tips, "Trecho moderado: mantenha ritmo constante nas curvas.")
	default:
		tips = append(tips, "Trecho tranquilo, bom para garupa.")
	}

	return Itinerary{
		Title:       "Rolê para " + d.Name,
		Description: d.Description,
		Stops:       stops,
		Tips:        tips,
		Source:      SourceLocal,
	}, nil
}

func (r Request) dwellHours() float64 {
	if r.Feasibility != nil && r.Feasibility.Breakdown.DwellHours > 0 {
		return r.Feasibility.Breakdown.DwellHours
	}
	return 2
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

type fallbackGenerator struct {
	primary  ItineraryGenerator
	fallback ItineraryGenerator
	logger   *zap.Logger
}

// WithFallback returns a generator that uses fallback whenever primary fails.
// Cancellation of ctx is the only error passed through untouched.
func WithFallback(primary, fallback ItineraryGenerator, logger *zap.Logger) ItineraryGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &fallbackGenerator{primary: primary, fallback: fallback, logger: logger}
}

func (f *fallbackGenerator) Generate(ctx context.Context, req Request) (Itinerary, error) {
	if f.primary != nil {
		it, err := f.primary.Generate(ctx, req)
		if err == nil {
			return it, nil
		}
		if errors.Is(err, context.Canceled) {
			return Itinerary{}, err
		}
		f.logger.Warn("itinerary provider failed, using local generator",
			zap.String("destination", req.Destination.Name), zap.Error(err))
	}
	return f.fallback.Generate(ctx, req)
}

// PlaceholderImage is served when no image provider is available.
var PlaceholderImage = Image{
	MIMEType: "image/svg+xml",
	Data: []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="640" height="360">` +
		`<rect width="100%" height="100%" fill="#1f2933"/>` +
		`<text x="50%" y="50%" fill="#f5a623" font-size="32" text-anchor="middle">Rolê</text></svg>`),
}

type imageFallback struct {
	primary     ImageProvider
	placeholder Image
	logger      *zap.Logger
}

// WithImageFallback returns placeholder whenever primary fails or is nil.
func WithImageFallback(primary ImageProvider, placeholder Image, logger *zap.Logger) ImageProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &imageFallback{primary: primary, placeholder: placeholder, logger: logger}
}

func (f *imageFallback) Image(ctx context.Context, prompt string) (Image, error) {
	if f.primary == nil {
		return f.placeholder, nil
	}
	img, err := f.primary.Image(ctx, prompt)
	if err != nil {
		f.logger.Warn("image provider failed, using placeholder", zap.Error(err))
		return f.placeholder, nil
	}
	return img, nil
}

// ImagePrompt describes the cover picture for a destination.
func ImagePrompt(d domain.Destination) string {
	return fmt.Sprintf("Fotografia de uma motocicleta na estrada a caminho de %s, %s, luz do fim de tarde.",
		d.Name, d.Description)
}
