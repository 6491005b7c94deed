package ip

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipcore/pkg/netstack"
)

func fragBuf(t *testing.T, id uint16, start, length int, mf bool, fill byte) *Buffer {
	t.Helper()
	data := make([]byte, length)
	for i := range data {
		data[i] = fill
	}
	b := NewBuffer(data)
	flags := uint8(0)
	if mf {
		flags = FlagMF
	}
	b.Header = &Header{
		Version:    4,
		IHL:        5,
		ID:         id,
		Flags:      flags,
		FragOffset: uint16(start / 8),
		Protocol:   netstack.ProtocolUDP,
		SrcIP:      net.IPv4(10, 0, 0, 1).To4(),
		DstIP:      net.IPv4(10, 0, 0, 2).To4(),
	}
	b.Clip = NewClipInfo(start, length, netstack.CastUnicastLocal, 0)
	return b
}

func TestReassembleInOrder(t *testing.T) {
	table := NewTable()

	whole, err := table.Reassemble(fragBuf(t, 1, 0, 8, true, 'a'))
	require.NoError(t, err)
	assert.Nil(t, whole)
	assert.Equal(t, 1, table.Len())

	whole, err = table.Reassemble(fragBuf(t, 1, 8, 8, true, 'b'))
	require.NoError(t, err)
	assert.Nil(t, whole)

	whole, err = table.Reassemble(fragBuf(t, 1, 16, 4, false, 'c'))
	require.NoError(t, err)
	require.NotNil(t, whole)
	assert.Equal(t, 0, table.Len())

	got := whole.FragmentTable()
	var flat []byte
	for _, blk := range got {
		flat = append(flat, blk.Data...)
	}
	assert.Equal(t, []byte("aaaaaaaabbbbbbbbcccc"), flat)
}

func TestReassembleOutOfOrderWithDuplicate(t *testing.T) {
	table := NewTable()

	_, err := table.Reassemble(fragBuf(t, 2, 16, 4, false, 'c'))
	require.NoError(t, err)
	_, err = table.Reassemble(fragBuf(t, 2, 0, 8, true, 'a'))
	require.NoError(t, err)

	// Duplicate of the first fragment: should be silently discarded,
	// not alter completion state.
	dup, err := table.Reassemble(fragBuf(t, 2, 0, 8, true, 'a'))
	require.NoError(t, err)
	assert.Nil(t, dup)

	whole, err := table.Reassemble(fragBuf(t, 2, 8, 8, true, 'b'))
	require.NoError(t, err)
	require.NotNil(t, whole)

	flat := flatten(whole)
	assert.Equal(t, []byte("aaaaaaaabbbbbbbbcccc"), flat)
}

func TestReassembleOverlapLeftTrim(t *testing.T) {
	table := NewTable()

	_, err := table.Reassemble(fragBuf(t, 3, 0, 8, true, 'a'))
	require.NoError(t, err)

	// Overlaps the first 4 bytes of the existing fragment's range but
	// extends past it; the new fragment's head should be trimmed.
	_, err = table.Reassemble(fragBuf(t, 3, 4, 12, true, 'b'))
	require.NoError(t, err)

	whole, err := table.Reassemble(fragBuf(t, 3, 16, 4, false, 'c'))
	require.NoError(t, err)
	require.NotNil(t, whole)

	flat := flatten(whole)
	assert.Equal(t, []byte("aaaaaaaabbbbbbbbcccc"), flat)
}

func TestReassembleOverlapRightDropsContainedSuccessor(t *testing.T) {
	table := NewTable()

	_, err := table.Reassemble(fragBuf(t, 4, 8, 4, true, 'x'))
	require.NoError(t, err)

	// A wider fragment starting earlier that fully covers the existing
	// one: the successor must be dropped, not merged.
	_, err = table.Reassemble(fragBuf(t, 4, 0, 16, true, 'a'))
	require.NoError(t, err)

	whole, err := table.Reassemble(fragBuf(t, 4, 16, 4, false, 'c'))
	require.NoError(t, err)
	require.NotNil(t, whole)

	flat := flatten(whole)
	assert.Equal(t, []byte("aaaaaaaaaaaaaaaacccc"), flat)
}

func TestReassembleGapNeverCompletes(t *testing.T) {
	table := NewTable()

	_, err := table.Reassemble(fragBuf(t, 5, 0, 8, true, 'a'))
	require.NoError(t, err)
	whole, err := table.Reassemble(fragBuf(t, 5, 16, 4, false, 'c'))
	require.NoError(t, err)
	assert.Nil(t, whole)
	assert.Equal(t, 1, table.Len())
}

func TestAgeExpiresStaleEntry(t *testing.T) {
	table := NewTable()
	_, err := table.Reassemble(fragBuf(t, 6, 0, 8, true, 'a'))
	require.NoError(t, err)

	for i := 0; i < fragmentLife; i++ {
		table.Age()
	}
	assert.Equal(t, 0, table.Len())
}

func flatten(b *Buffer) []byte {
	var out []byte
	for _, blk := range b.FragmentTable() {
		out = append(out, blk.Data...)
	}
	return out
}
