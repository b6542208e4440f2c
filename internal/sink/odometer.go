package sink

import (
	"sync"

	geo "github.com/kellydunn/golang-geo"

	"github.com/relabs-tech/rmc_logger/internal/gps"
)

// Odometer sums the great-circle distance between consecutive fixes.
type Odometer struct {
	mu   sync.Mutex
	prev *geo.Point
	km   float64
	legs int
}

func NewOdometer() *Odometer { return &Odometer{} }

func (o *Odometer) WriteFix(_ uint64, fix gps.Fix) error {
	p := geo.NewPoint(fix.Latitude.Float64(), fix.Longitude.Float64())

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.prev != nil {
		o.km += o.prev.GreatCircleDistance(p)
		o.legs++
	}
	o.prev = p
	return nil
}

func (o *Odometer) Skip(uint64, error) error { return nil }

func (o *Odometer) Close() error { return nil }

// Meters returns the distance travelled so far.
func (o *Odometer) Meters() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.km * 1000
}

// Legs returns how many fix-to-fix legs were measured.
func (o *Odometer) Legs() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.legs
}
