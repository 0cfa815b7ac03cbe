package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSizeClasses_Default(t *testing.T) {
	classes, err := DefaultConfig.Classes()
	require.NoError(t, err)
	require.Equal(t, []uint32{
		32, 48, 64, 96, 128, 192, 256, 384, 512,
		1024, 2048, 4096, 8192, 16384, 32768, 65536, 131072,
	}, classes)
}

func TestSizeClasses_Pow2(t *testing.T) {
	classes, err := ConfigPow2.Classes()
	require.NoError(t, err)
	require.Equal(t, []uint32{32, 64, 128, 256, 512, 1024, 2048, 4096, 8192, 16384}, classes)
}

func TestSizeClasses_AlignedAndIncreasing(t *testing.T) {
	cfg := SizeClassConfig{
		Name:           "Odd",
		SmallMin:       26,
		SmallMax:       90,
		SmallIncrement: 20,
		SplitMax:       700,
		MaxClass:       5000,
		GrowthFactor:   1.7,
	}
	classes, err := cfg.Classes()
	require.NoError(t, err)
	require.NotEmpty(t, classes)
	require.Equal(t, uint32(5000), classes[len(classes)-1])
	for i, c := range classes {
		require.Zero(t, c%8, "class %d not aligned", c)
		if i > 0 {
			require.Greater(t, c, classes[i-1])
		}
	}
}

func TestSizeClasses_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  SizeClassConfig
	}{
		{"below minimum", SizeClassConfig{SmallMin: 16, SmallMax: 32, SmallIncrement: 8, MaxClass: 64, GrowthFactor: 2}},
		{"zero increment", SizeClassConfig{SmallMin: 32, SmallMax: 64, MaxClass: 128, GrowthFactor: 2}},
		{"out of order", SizeClassConfig{SmallMin: 64, SmallMax: 32, SmallIncrement: 8, MaxClass: 128, GrowthFactor: 2}},
		{"no growth", SizeClassConfig{SmallMin: 32, SmallMax: 32, SmallIncrement: 8, SplitMax: 32, MaxClass: 1024, GrowthFactor: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Classes()
			require.ErrorIs(t, err, ErrBadSizeClasses)
		})
	}
}

func TestSizeClassTable_ClassFor(t *testing.T) {
	table, err := newSizeClassTable(DefaultConfig)
	require.NoError(t, err)

	tests := []struct {
		payload uint32
		class   uint32
	}{
		{1, 32},
		{16, 32},
		{17, 48},
		{48, 64},
		{49, 96},
		{496, 512},
		{497, 1024},
		{131056, 131072},
	}
	for _, tt := range tests {
		ci := table.classFor(tt.payload)
		require.GreaterOrEqual(t, ci, 0, "payload %d", tt.payload)
		require.Equal(t, tt.class, table.classes[ci], "payload %d", tt.payload)
	}
	require.Equal(t, -1, table.classFor(131057))

	require.Equal(t, 2, table.indexOf(64))
	require.Equal(t, -1, table.indexOf(65))
	require.Equal(t, -1, table.indexOf(0))
}

func TestTableSum_DistinguishesTables(t *testing.T) {
	a, err := DefaultConfig.Classes()
	require.NoError(t, err)
	b, err := ConfigPow2.Classes()
	require.NoError(t, err)
	require.NotEqual(t, TableSum(a), TableSum(b))
	require.Equal(t, TableSum(a), TableSum(append([]uint32(nil), a...)))
}

func TestLookupConfig(t *testing.T) {
	c, err := LookupConfig("Pow2")
	require.NoError(t, err)
	require.Equal(t, ConfigPow2, c)

	c, err = LookupConfig("HalfStep")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig, c)

	_, err = LookupConfig("pow2")
	require.ErrorIs(t, err, ErrBadSizeClasses)
}
