package tracking

import (
	"sort"

	"github.com/LdDl/algo-plugin-go/plugin"
	"github.com/google/uuid"
)

// trackStore keeps live blobs and maps their uuids to int64 track ids handed out to the host.
// Track ids start from 1 and are never reused.
type trackStore[B Blob[B]] struct {
	objects map[uuid.UUID]B
	ids     map[uuid.UUID]int64
	nextID  int64
}

func newTrackStore[B Blob[B]]() *trackStore[B] {
	return &trackStore[B]{
		objects: make(map[uuid.UUID]B),
		ids:     make(map[uuid.UUID]int64),
		nextID:  1,
	}
}

func (store *trackStore[B]) register(blob B) {
	id := blob.GetID()
	store.objects[id] = blob
	store.ids[id] = store.nextID
	store.nextID++
}

// ordered returns uuids of live tracks sorted by their track id, so iteration does not depend on map order
func (store *trackStore[B]) ordered() []uuid.UUID {
	keys := make([]uuid.UUID, 0, len(store.objects))
	for id := range store.objects {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool {
		return store.ids[keys[i]] < store.ids[keys[j]]
	})
	return keys
}

func (store *trackStore[B]) predict() {
	for _, object := range store.objects {
		object.PredictNextPosition()
	}
}

// age increments no-match counter of every track missing in matched and drops tracks for which keep is false
func (store *trackStore[B]) age(matched map[uuid.UUID]struct{}, keep func(B) bool) {
	for id, object := range store.objects {
		if _, ok := matched[id]; !ok {
			object.IncNoMatch()
		}
		if !keep(object) {
			delete(store.objects, id)
			delete(store.ids, id)
		}
	}
}

// resolve reports track id of every detection blob. Blobs which are neither matched nor registered are untracked
func (store *trackStore[B]) resolve(blobs []B) []int64 {
	out := make([]int64, len(blobs))
	for i, blob := range blobs {
		id, ok := store.ids[blob.GetID()]
		if !ok {
			out[i] = plugin.UntrackedID
			continue
		}
		out[i] = id
	}
	return out
}

func (store *trackStore[B]) reset() {
	store.objects = make(map[uuid.UUID]B)
	store.ids = make(map[uuid.UUID]int64)
}
