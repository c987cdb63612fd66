package track

import (
	"fmt"
	"testing"

	"github.com/mnemo-oss/mnemo/internal/memory"
)

func TestTracker_RecordAndSeen(t *testing.T) {
	tr := New(10)
	tr.Record("m1", "the build uses turborepo", memory.CategoryDiscovery)

	if !tr.Seen(memory.ShortHash("the build uses turborepo")) {
		t.Error("recorded message not seen")
	}
	if tr.Seen(memory.ShortHash("something else entirely")) {
		t.Error("unrecorded message reported seen")
	}
}

func TestTracker_CapDropsOldest(t *testing.T) {
	tr := New(3)
	for i := 0; i < 5; i++ {
		tr.Record(fmt.Sprintf("m%d", i), fmt.Sprintf("message body %d", i), "")
	}

	if tr.Len() != 3 {
		t.Fatalf("len = %d, want 3", tr.Len())
	}
	ptrs := tr.Pointers()
	if ptrs[0].MessageID != "m2" || ptrs[2].MessageID != "m4" {
		t.Errorf("wrong window kept: %s..%s", ptrs[0].MessageID, ptrs[2].MessageID)
	}
}

func TestTracker_PointersReturnsCopy(t *testing.T) {
	tr := New(10)
	tr.Record("m1", "hello there", "")

	ptrs := tr.Pointers()
	ptrs[0].MessageID = "mutated"

	if tr.Pointers()[0].MessageID != "m1" {
		t.Error("Pointers exposed internal slice")
	}
}

func TestTracker_DefaultCap(t *testing.T) {
	tr := New(0)
	if tr.cap != defaultCap {
		t.Errorf("cap = %d, want %d", tr.cap, defaultCap)
	}
}
