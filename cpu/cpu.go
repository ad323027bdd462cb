// Package cpu enumerates, offlines and restores execution cores, and runs
// the all-cores rendezvous used for hypervisor activation.
package cpu

// Hotplug abstracts core administration. The sysfs implementation drives
// real Linux CPU hotplug; tests substitute an in-memory fake.
type Hotplug interface {
	// Online returns the ids of currently-online cores, ascending.
	Online() ([]int, error)
	// Possible returns the number of cores the machine can ever have.
	Possible() (int, error)
	// IsOnline reports whether the core is currently online.
	IsOnline(id int) (bool, error)
	// Down takes the core offline, removing it from the scheduling pool.
	Down(id int) error
	// Up brings the core back online.
	Up(id int) error
}
