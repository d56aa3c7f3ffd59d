package placement

import (
	"github.com/talgya/hamlet/internal/entity"
	"github.com/talgya/hamlet/internal/world"
)

// RefreshCoverage recomputes every house's service access and noise flag
// from the producers standing around it. Only active service producers
// cover houses; any standing noisy producer disturbs them.
func RefreshCoverage(producers []*entity.Producer, houses []*entity.House) {
	for _, h := range houses {
		if h.Destroyed() {
			continue
		}
		var access entity.ServiceSet
		noise := false
		for _, p := range producers {
			if p.Destroyed() {
				continue
			}
			d := world.Distance(h.Location, p.Location)
			if p.Kind.Noisy && d <= NoiseRadius {
				noise = true
			}
			if p.Active && p.Kind.Service != entity.ServiceNone && d <= p.Kind.ServiceRadius {
				access = access.With(p.Kind.Service)
			}
		}
		h.Access = access
		h.InNoise = noise
	}
}
