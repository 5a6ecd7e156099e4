package grid

// DoubleBuffer holds the sub-domain for the current and the next time step.
// Old is read by the update, New is written by it and by the halo exchange.
type DoubleBuffer struct {
	grids [2]*Grid
	old   int
}

func NewDoubleBuffer(npt [3]int) *DoubleBuffer {
	return &DoubleBuffer{
		grids: [2]*Grid{NewGrid(npt), NewGrid(npt)},
	}
}

func (db *DoubleBuffer) Old() *Grid {
	return db.grids[db.old]
}

func (db *DoubleBuffer) New() *Grid {
	return db.grids[db.old^1]
}

// Swap exchanges the roles of the two grids without touching their contents
func (db *DoubleBuffer) Swap() {
	db.old ^= 1
}

func (db *DoubleBuffer) Npt() [3]int {
	return db.grids[0].Npt
}
