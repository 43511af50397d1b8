package energyparams

import (
	"sync"

	"github.com/foldspace/thermo/rig"
)

// ModelData pairs the primary-precision cached model with the backup
// high-precision one the scheduler upgrades to after an overflow. Readers
// take the shared lock; Reserve, which grows both models' tables, takes
// the exclusive one. Growth is strictly monotonic. Primary and Backup do
// not check capacity; callers grow it with Reserve.
type ModelData struct {
	mu      sync.RWMutex
	primary *CachedModel[float64]
	backup  *CachedModel[rig.Big[float64]]
}

// NewModelData builds the primary/backup pair over one Model for the PF
// ensemble at the model's temperature.
func NewModelData(m *Model) *ModelData {
	return &ModelData{
		primary: NewCachedModel[float64](m, rig.NewScalarPF[float64](m.TemperatureKelvin)),
		backup:  NewCachedModel[rig.Big[float64]](m, rig.NewBigPF[float64](m.TemperatureKelvin)),
	}
}

// Primary returns the single-precision-stage cached model.
func (d *ModelData) Primary() *CachedModel[float64] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.primary
}

// Backup returns the mantissa/exponent-stage cached model.
func (d *ModelData) Backup() *CachedModel[rig.Big[float64]] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.backup
}

// Reserve grows both stages' tables to serve lengths up to n.
func (d *ModelData) Reserve(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.primary.Reserve(n)
	d.backup.Reserve(n)
}
