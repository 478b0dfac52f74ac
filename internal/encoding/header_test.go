package encoding_test

import (
	"bytes"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/backbone81/nano-wal/internal/encoding"
)

var _ = Describe("FileHeader", func() {
	testHeader := encoding.FileHeader{
		Sequence:   7,
		Expiration: 1234567890,
		Key:        []byte("orders"),
	}

	It("should write the header", func() {
		var output bytes.Buffer
		var buffer [encoding.FileHeaderFixedSize]byte
		Expect(encoding.WriteFileHeader(&output, buffer[:], testHeader)).To(Succeed())
		Expect(int64(output.Len())).To(Equal(testHeader.Size()))
		Expect(output.Bytes()[:8]).To(Equal(encoding.FileMagic[:]))
	})

	It("should read the header", func() {
		var output bytes.Buffer
		var buffer [encoding.FileHeaderFixedSize]byte
		Expect(encoding.WriteFileHeader(&output, buffer[:], testHeader)).To(Succeed())

		gotHeader, err := encoding.ReadFileHeader(&output, buffer[:])
		Expect(err).ToNot(HaveOccurred())
		Expect(gotHeader).To(Equal(testHeader))
	})

	It("should round trip an empty key", func() {
		var output bytes.Buffer
		var buffer [encoding.FileHeaderFixedSize]byte
		emptyKeyHeader := encoding.FileHeader{Sequence: 0, Expiration: 1, Key: []byte{}}
		Expect(encoding.WriteFileHeader(&output, buffer[:], emptyKeyHeader)).To(Succeed())

		gotHeader, err := encoding.ReadFileHeader(&output, buffer[:])
		Expect(err).ToNot(HaveOccurred())
		Expect(gotHeader).To(Equal(emptyKeyHeader))
	})

	It("should fail reading the header from an empty buffer", func() {
		var input bytes.Buffer
		var buffer [encoding.FileHeaderFixedSize]byte
		Expect(encoding.ReadFileHeader(&input, buffer[:])).Error().To(MatchError(io.EOF))
	})

	It("should fail reading the header with wrong magic bytes", func() {
		var output bytes.Buffer
		var buffer [encoding.FileHeaderFixedSize]byte
		Expect(encoding.WriteFileHeader(&output, buffer[:], testHeader)).To(Succeed())

		output.Bytes()[2] = 'X'
		Expect(encoding.ReadFileHeader(&output, buffer[:])).Error().To(MatchError(encoding.ErrHeaderInvalidMagicBytes))
	})

	It("should refuse the historic NANO-WAL signature", func() {
		var output bytes.Buffer
		var buffer [encoding.FileHeaderFixedSize]byte
		Expect(encoding.WriteFileHeader(&output, buffer[:], testHeader)).To(Succeed())

		copy(output.Bytes()[:8], "NANO-WAL")
		Expect(encoding.ReadFileHeader(&output, buffer[:])).Error().To(MatchError(encoding.ErrHeaderInvalidMagicBytes))
	})

	It("should fail reading the header which is too short", func() {
		var output bytes.Buffer
		var buffer [encoding.FileHeaderFixedSize]byte
		Expect(encoding.WriteFileHeader(&output, buffer[:], testHeader)).To(Succeed())

		truncated := bytes.NewReader(output.Bytes()[:output.Len()-1])
		Expect(encoding.ReadFileHeader(truncated, buffer[:])).Error().To(MatchError(io.ErrUnexpectedEOF))
	})

	It("should fail reading the header with an oversized key length", func() {
		var output bytes.Buffer
		var buffer [encoding.FileHeaderFixedSize]byte
		Expect(encoding.WriteFileHeader(&output, buffer[:], testHeader)).To(Succeed())

		encoding.Endian.PutUint64(output.Bytes()[24:32], encoding.MaxKeySize+1)
		Expect(encoding.ReadFileHeader(&output, buffer[:])).Error().To(MatchError(encoding.ErrHeaderKeyTooLarge))
	})
})
