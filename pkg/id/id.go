// Package id mints run identifiers for journal records. ULIDs are
// time-sortable, so runs listed back from SQLite or CSV come out in the
// order they were executed.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy io.Reader = newEntropy()
)

// newEntropy seeds a PRNG from crypto/rand and wraps it in ulid.Monotonic,
// so IDs minted within the same millisecond still sort by mint order.
func newEntropy() io.Reader {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a fresh run ID.
func New() string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), entropy)
	if err != nil {
		// ulid.New fails only on entropy exhaustion or clock regression.
		panic(err)
	}
	return id.String()
}
