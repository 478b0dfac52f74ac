package wal_test

import (
	"os"
	"path"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/backbone81/nano-wal/internal/wal"
)

// enumerate drains the record iterator of the given key and returns all record contents.
func enumerate(myWal *wal.WAL, key wal.Key) [][]byte {
	GinkgoHelper()

	records := myWal.EnumerateRecords(key)
	defer func() {
		Expect(records.Close()).To(Succeed())
	}()

	var result [][]byte
	for records.Next() {
		result = append(result, records.Value())
	}
	Expect(records.Err()).ToNot(HaveOccurred())
	return result
}

var _ = Describe("WAL", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "test-wal-*")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	It("should create the directory if it does not exist", func() {
		myWal, err := wal.New(path.Join(dir, "nested", "wal"))
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(myWal.Close()).To(Succeed())
		}()

		Expect(path.Join(dir, "nested", "wal")).To(BeADirectory())
	})

	It("should round trip a record with empty content", func() {
		myWal, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(myWal.Close()).To(Succeed())
		}()

		ref, err := myWal.AppendEntry(wal.StringKey("k"), nil, []byte(""), true)
		Expect(err).ToNot(HaveOccurred())

		Expect(myWal.ReadEntryAt(ref)).To(Equal([]byte{}))
		Expect(enumerate(myWal, wal.StringKey("k"))).To(Equal([][]byte{{}}))
	})

	It("should round trip records regardless of the durable flag", func() {
		myWal, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(myWal.Close()).To(Succeed())
		}()

		durableRef, err := myWal.AppendEntry(wal.StringKey("k"), nil, []byte("durable"), true)
		Expect(err).ToNot(HaveOccurred())
		volatileRef, err := myWal.AppendEntry(wal.StringKey("k"), nil, []byte("volatile"), false)
		Expect(err).ToNot(HaveOccurred())

		Expect(myWal.ReadEntryAt(durableRef)).To(Equal([]byte("durable")))
		Expect(myWal.ReadEntryAt(volatileRef)).To(Equal([]byte("volatile")))
	})

	It("should keep record headers opaque on reads", func() {
		myWal, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(myWal.Close()).To(Succeed())
		}()

		ref, err := myWal.AppendEntry(wal.StringKey("k"), []byte("meta"), []byte("body"), true)
		Expect(err).ToNot(HaveOccurred())

		Expect(myWal.ReadEntryAt(ref)).To(Equal([]byte("body")))
		Expect(enumerate(myWal, wal.StringKey("k"))).To(Equal([][]byte{[]byte("body")}))
	})

	It("should keep the record streams of different keys independent", func() {
		myWal, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(myWal.Close()).To(Succeed())
		}()

		Expect(myWal.AppendEntry(wal.StringKey("a"), nil, []byte("1"), false)).Error().ToNot(HaveOccurred())
		Expect(myWal.AppendEntry(wal.StringKey("b"), nil, []byte("2"), false)).Error().ToNot(HaveOccurred())
		Expect(myWal.AppendEntry(wal.StringKey("a"), nil, []byte("3"), false)).Error().ToNot(HaveOccurred())

		Expect(enumerate(myWal, wal.StringKey("a"))).To(Equal([][]byte{[]byte("1"), []byte("3")}))
		Expect(enumerate(myWal, wal.StringKey("b"))).To(Equal([][]byte{[]byte("2")}))
	})

	It("should enumerate every key exactly once", func() {
		myWal, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(myWal.Close()).To(Succeed())
		}()

		Expect(myWal.AppendEntry(wal.StringKey("b"), nil, []byte("1"), false)).Error().ToNot(HaveOccurred())
		Expect(myWal.AppendEntry(wal.StringKey("a"), nil, []byte("2"), false)).Error().ToNot(HaveOccurred())
		Expect(myWal.AppendEntry(wal.StringKey("a"), nil, []byte("3"), false)).Error().ToNot(HaveOccurred())

		Expect(myWal.EnumerateKeys()).To(Equal([]string{"a", "b"}))
	})

	It("should yield an empty enumeration for an unknown key", func() {
		myWal, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(myWal.Close()).To(Succeed())
		}()

		Expect(enumerate(myWal, wal.StringKey("unknown"))).To(BeEmpty())
	})

	It("should reject a record header exceeding the maximum possible size", func() {
		myWal, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(myWal.Close()).To(Succeed())
		}()

		oversized := make([]byte, 65536)
		Expect(myWal.AppendEntry(wal.StringKey("k"), oversized, []byte(""), false)).Error().To(MatchError(wal.ErrHeaderTooLarge))

		By("leaving no observable effect on disk")
		Expect(enumerate(myWal, wal.StringKey("k"))).To(BeEmpty())
		Expect(myWal.EnumerateKeys()).To(BeEmpty())
	})

	It("should accept a record header of exactly the maximum possible size", func() {
		myWal, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(myWal.Close()).To(Succeed())
		}()

		largest := make([]byte, 65535)
		ref, err := myWal.AppendEntry(wal.StringKey("k"), largest, []byte("body"), false)
		Expect(err).ToNot(HaveOccurred())
		Expect(myWal.ReadEntryAt(ref)).To(Equal([]byte("body")))
	})

	It("should fail reading a dangling reference", func() {
		myWal, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(myWal.Close()).To(Succeed())
		}()

		Expect(myWal.ReadEntryAt(wal.EntryRef{KeyHash: 12345, SequenceNumber: 0, Offset: 0})).Error().To(MatchError(wal.ErrEntryNotFound))
	})

	It("should fail reading at an offset which is not a frame start", func() {
		myWal, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(myWal.Close()).To(Succeed())
		}()

		ref, err := myWal.AppendEntry(wal.StringKey("k"), nil, []byte("some longer content"), true)
		Expect(err).ToNot(HaveOccurred())

		brokenRef := ref
		brokenRef.Offset++
		Expect(myWal.ReadEntryAt(brokenRef)).Error().To(MatchError(wal.ErrCorruptedData))
	})

	It("should rotate into a new segment when the active one has expired", func() {
		myWal, err := wal.New(dir,
			wal.WithEntryRetention(2*time.Second),
			wal.WithSegmentsPerRetentionPeriod(2),
		)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(myWal.Close()).To(Succeed())
		}()

		firstRef, err := myWal.AppendEntry(wal.StringKey("k"), nil, []byte("first"), true)
		Expect(err).ToNot(HaveOccurred())
		Expect(firstRef.SequenceNumber).To(Equal(uint64(0)))

		time.Sleep(1100 * time.Millisecond)

		secondRef, err := myWal.AppendEntry(wal.StringKey("k"), nil, []byte("second"), true)
		Expect(err).ToNot(HaveOccurred())
		Expect(secondRef.SequenceNumber).To(Equal(uint64(1)))

		Expect(myWal.ReadEntryAt(firstRef)).To(Equal([]byte("first")))
		Expect(myWal.ReadEntryAt(secondRef)).To(Equal([]byte("second")))
		Expect(enumerate(myWal, wal.StringKey("k"))).To(Equal([][]byte{[]byte("first"), []byte("second")}))
	})

	It("should remove expired sealed segments on compaction but never the active one", func() {
		myWal, err := wal.New(dir,
			wal.WithEntryRetention(2*time.Second),
			wal.WithSegmentsPerRetentionPeriod(2),
		)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(myWal.Close()).To(Succeed())
		}()

		firstRef, err := myWal.AppendEntry(wal.StringKey("k"), nil, []byte("first"), true)
		Expect(err).ToNot(HaveOccurred())

		time.Sleep(1100 * time.Millisecond)

		secondRef, err := myWal.AppendEntry(wal.StringKey("k"), nil, []byte("second"), true)
		Expect(err).ToNot(HaveOccurred())

		By("expiring every segment, including the active one")
		time.Sleep(2 * time.Second)

		removed, err := myWal.Compact()
		Expect(err).ToNot(HaveOccurred())
		Expect(removed).To(Equal(1))

		Expect(myWal.ReadEntryAt(firstRef)).Error().To(MatchError(wal.ErrEntryNotFound))
		Expect(myWal.ReadEntryAt(secondRef)).To(Equal([]byte("second")))
		Expect(enumerate(myWal, wal.StringKey("k"))).To(Equal([][]byte{[]byte("second")}))
	})

	It("should not remove anything while nothing is expired", func() {
		myWal, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(myWal.Close()).To(Succeed())
		}()

		Expect(myWal.AppendEntry(wal.StringKey("k"), nil, []byte("first"), true)).Error().ToNot(HaveOccurred())

		removed, err := myWal.Compact()
		Expect(err).ToNot(HaveOccurred())
		Expect(removed).To(BeZero())
	})

	It("should append a batch and resolve all returned references", func() {
		myWal, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(myWal.Close()).To(Succeed())
		}()

		refs, err := myWal.AppendBatch([]wal.BatchEntry{
			{Key: wal.StringKey("k"), Content: []byte("c1")},
			{Key: wal.StringKey("k"), Header: []byte("meta"), Content: []byte("c2")},
			{Key: wal.StringKey("other"), Content: []byte("c3")},
		}, true)
		Expect(err).ToNot(HaveOccurred())
		Expect(refs).To(HaveLen(3))

		Expect(myWal.ReadEntryAt(refs[0])).To(Equal([]byte("c1")))
		Expect(myWal.ReadEntryAt(refs[1])).To(Equal([]byte("c2")))
		Expect(myWal.ReadEntryAt(refs[2])).To(Equal([]byte("c3")))
		Expect(enumerate(myWal, wal.StringKey("k"))).To(Equal([][]byte{[]byte("c1"), []byte("c2")}))
	})

	It("should abort a batch on the first oversized header", func() {
		myWal, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(myWal.Close()).To(Succeed())
		}()

		oversized := make([]byte, 65536)
		Expect(myWal.AppendBatch([]wal.BatchEntry{
			{Key: wal.StringKey("k"), Content: []byte("c1")},
			{Key: wal.StringKey("k"), Header: oversized, Content: []byte("c2")},
			{Key: wal.StringKey("k"), Content: []byte("c3")},
		}, true)).Error().To(MatchError(wal.ErrHeaderTooLarge))

		By("keeping the records written before the error")
		Expect(enumerate(myWal, wal.StringKey("k"))).To(Equal([][]byte{[]byte("c1")}))
	})

	It("should serve all records again after closing and re-opening", func() {
		myWal, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())

		firstRef, err := myWal.LogEntry(wal.StringKey("k"), []byte("meta"), []byte("first"))
		Expect(err).ToNot(HaveOccurred())
		secondRef, err := myWal.LogEntry(wal.StringKey("k"), nil, []byte("second"))
		Expect(err).ToNot(HaveOccurred())
		Expect(myWal.Close()).To(Succeed())

		reopened, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(reopened.Close()).To(Succeed())
		}()

		Expect(reopened.ReadEntryAt(firstRef)).To(Equal([]byte("first")))
		Expect(reopened.ReadEntryAt(secondRef)).To(Equal([]byte("second")))
		Expect(enumerate(reopened, wal.StringKey("k"))).To(Equal([][]byte{[]byte("first"), []byte("second")}))
		Expect(reopened.EnumerateKeys()).To(Equal([]string{"k"}))
	})

	It("should continue the segment stream after re-opening", func() {
		myWal, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())

		firstRef, err := myWal.LogEntry(wal.StringKey("k"), nil, []byte("first"))
		Expect(err).ToNot(HaveOccurred())
		Expect(myWal.Close()).To(Succeed())

		reopened, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(reopened.Close()).To(Succeed())
		}()

		secondRef, err := reopened.LogEntry(wal.StringKey("k"), nil, []byte("second"))
		Expect(err).ToNot(HaveOccurred())
		Expect(secondRef.SequenceNumber).To(Equal(firstRef.SequenceNumber))
		Expect(secondRef.Offset).To(BeNumerically(">", firstRef.Offset))
		Expect(enumerate(reopened, wal.StringKey("k"))).To(Equal([][]byte{[]byte("first"), []byte("second")}))
	})

	It("should recover from a partial tail frame left behind by a crash", func() {
		myWal, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())

		ref, err := myWal.LogEntry(wal.StringKey("k"), nil, []byte("survivor"))
		Expect(err).ToNot(HaveOccurred())
		Expect(myWal.Close()).To(Succeed())

		By("simulating a crash in the middle of a frame write")
		dirEntries, err := os.ReadDir(dir)
		Expect(err).ToNot(HaveOccurred())
		Expect(dirEntries).To(HaveLen(1))
		file, err := os.OpenFile(path.Join(dir, dirEntries[0].Name()), os.O_WRONLY|os.O_APPEND, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(file.Write([]byte("NANORC\x08\x00trunc"))).Error().ToNot(HaveOccurred())
		Expect(file.Close()).To(Succeed())

		reopened, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(reopened.Close()).To(Succeed())
		}()

		By("keeping the complete frames readable")
		Expect(reopened.ReadEntryAt(ref)).To(Equal([]byte("survivor")))
		Expect(enumerate(reopened, wal.StringKey("k"))).To(Equal([][]byte{[]byte("survivor")}))

		By("overwriting the partial tail with the next append")
		nextRef, err := reopened.LogEntry(wal.StringKey("k"), nil, []byte("fresh"))
		Expect(err).ToNot(HaveOccurred())
		Expect(reopened.ReadEntryAt(nextRef)).To(Equal([]byte("fresh")))
		Expect(enumerate(reopened, wal.StringKey("k"))).To(Equal([][]byte{[]byte("survivor"), []byte("fresh")}))
	})

	It("should skip files with unreadable headers when opening", func() {
		myWal, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())

		ref, err := myWal.LogEntry(wal.StringKey("k"), nil, []byte("good"))
		Expect(err).ToNot(HaveOccurred())
		Expect(myWal.Close()).To(Succeed())

		By("placing a file with a bogus header next to the good segment")
		bogus := path.Join(dir, "bogus-123-0000.log")
		Expect(os.WriteFile(bogus, []byte("this is certainly not a valid segment file"), 0o664)).To(Succeed())

		reopened, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(reopened.Close()).To(Succeed())
		}()

		Expect(reopened.ReadEntryAt(ref)).To(Equal([]byte("good")))
		Expect(reopened.EnumerateKeys()).To(Equal([]string{"k"}))
	})

	It("should count the keys holding an open active segment", func() {
		myWal, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(myWal.Close()).To(Succeed())
		}()

		Expect(myWal.ActiveSegmentCount()).To(BeZero())

		Expect(myWal.AppendEntry(wal.StringKey("a"), nil, []byte("1"), false)).Error().ToNot(HaveOccurred())
		Expect(myWal.AppendEntry(wal.StringKey("b"), nil, []byte("2"), false)).Error().ToNot(HaveOccurred())

		Expect(myWal.ActiveSegmentCount()).To(Equal(2))
	})

	It("should sync every active segment", func() {
		myWal, err := wal.New(dir)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(myWal.Close()).To(Succeed())
		}()

		Expect(myWal.AppendEntry(wal.StringKey("a"), nil, []byte("1"), false)).Error().ToNot(HaveOccurred())
		Expect(myWal.AppendEntry(wal.StringKey("b"), nil, []byte("2"), false)).Error().ToNot(HaveOccurred())

		Expect(myWal.Sync()).To(Succeed())
	})

	It("should remove the directory tree on shutdown", func() {
		walDir := path.Join(dir, "doomed")
		myWal, err := wal.New(walDir)
		Expect(err).ToNot(HaveOccurred())

		Expect(myWal.AppendEntry(wal.StringKey("k"), nil, []byte("1"), true)).Error().ToNot(HaveOccurred())

		Expect(myWal.Shutdown()).To(Succeed())
		Expect(os.Stat(walDir)).Error().To(MatchError(os.ErrNotExist))
	})
})
