package marketplace

// ActiveIndex is the unordered set of active listing ids. A sidecar
// position map keeps removal at O(1): the removed slot is overwritten by
// the last element, so survivor order is not stable and callers must not
// rely on it.
type ActiveIndex struct {
	ids []uint64
	pos map[uint64]int
}

func NewActiveIndex() *ActiveIndex {
	return &ActiveIndex{
		ids: make([]uint64, 0),
		pos: make(map[uint64]int),
	}
}

func (i *ActiveIndex) Add(listingId uint64) {
	if _, ok := i.pos[listingId]; ok {
		return
	}

	i.pos[listingId] = len(i.ids)
	i.ids = append(i.ids, listingId)
}

// Remove swap-removes listingId. Reports whether it was present.
func (i *ActiveIndex) Remove(listingId uint64) bool {
	at, ok := i.pos[listingId]
	if !ok {
		return false
	}

	last := len(i.ids) - 1
	moved := i.ids[last]
	i.ids[at] = moved
	i.pos[moved] = at

	i.ids = i.ids[:last]
	delete(i.pos, listingId)

	return true
}

func (i *ActiveIndex) Contains(listingId uint64) bool {
	_, ok := i.pos[listingId]
	return ok
}

func (i *ActiveIndex) Len() int {
	return len(i.ids)
}

// Ids returns a copy of the current membership.
func (i *ActiveIndex) Ids() []uint64 {
	out := make([]uint64, len(i.ids))
	copy(out, i.ids)

	return out
}
