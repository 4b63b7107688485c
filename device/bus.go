package device

import (
	"slices"
)

// Region is a device mapped at a base address.
type Region struct {
	Name   string
	Base   uint32
	Device Device
}

// Contains reports whether an access of size bytes at addr lies in the region.
func (r *Region) Contains(addr uint32, size int) bool {
	if addr < r.Base {
		return false
	}
	end := uint64(addr-r.Base) + uint64(size)
	return end <= uint64(r.Device.Size())
}

// Bus routes loads and stores to mapped devices.
type Bus struct {
	Regions []Region
}

// Map attaches a device at base.
func (bus *Bus) Map(name string, base uint32, dev Device) (err error) {
	end := uint64(base) + uint64(dev.Size())
	for _, r := range bus.Regions {
		r_end := uint64(r.Base) + uint64(r.Device.Size())
		if uint64(base) < r_end && uint64(r.Base) < end {
			err = ErrRegionOverlap
			return
		}
	}

	bus.Regions = append(bus.Regions, Region{Name: name, Base: base, Device: dev})
	slices.SortFunc(bus.Regions, func(a, b Region) int {
		if a.Base < b.Base {
			return -1
		}
		if a.Base > b.Base {
			return 1
		}
		return 0
	})

	return
}

// Find returns the region serving an access.
func (bus *Bus) Find(addr uint32, size int) (region *Region, ok bool) {
	for n := range bus.Regions {
		if bus.Regions[n].Contains(addr, size) {
			return &bus.Regions[n], true
		}
	}
	return
}

func checkAccess(addr uint32, size int) error {
	switch size {
	case 1, 2, 4:
	default:
		return ErrAccessSize
	}
	if addr%uint32(size) != 0 {
		return ErrMisaligned
	}
	return nil
}

// Load reads size bytes at addr.
func (bus *Bus) Load(addr uint32, size int) (value uint32, err error) {
	defer func() {
		if err != nil {
			err = &ErrAccess{Addr: addr, Size: size, Err: err}
		}
	}()

	err = checkAccess(addr, size)
	if err != nil {
		return
	}

	region, ok := bus.Find(addr, size)
	if !ok {
		err = ErrBusFault
		return
	}

	return region.Device.Load(addr-region.Base, size)
}

// Store writes size bytes at addr.
func (bus *Bus) Store(addr uint32, value uint32, size int) (err error) {
	defer func() {
		if err != nil {
			err = &ErrAccess{Addr: addr, Size: size, Store: true, Err: err}
		}
	}()

	err = checkAccess(addr, size)
	if err != nil {
		return
	}

	region, ok := bus.Find(addr, size)
	if !ok {
		err = ErrBusFault
		return
	}

	return region.Device.Store(addr-region.Base, value, size)
}

// Reset every mapped device.
func (bus *Bus) Reset() {
	for _, r := range bus.Regions {
		r.Device.Reset()
	}
}

// Tick advances every clocked device by one cycle.
func (bus *Bus) Tick() {
	for _, r := range bus.Regions {
		ticker, ok := r.Device.(Ticker)
		if ok {
			ticker.Tick()
		}
	}
}
