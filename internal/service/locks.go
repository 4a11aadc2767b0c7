package service

import (
	"encoding/binary"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
)

const lockStripes = 64

// cellLocks serializes ledger mutations per (user, task, date) cell via lock
// striping. Distinct cells hashing to different stripes proceed in parallel;
// a stripe collision only costs some extra waiting, never correctness.
type cellLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (l *cellLocks) cell(userID, taskID uuid.UUID, date time.Time) *sync.Mutex {
	h := fnv.New32a()
	h.Write(userID[:])
	h.Write(taskID[:])

	var day [8]byte
	binary.BigEndian.PutUint64(day[:], uint64(date.Unix()))
	h.Write(day[:])

	return &l.stripes[h.Sum32()%lockStripes]
}
