package pipelines

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/airbridge/internal/core/domain"
)

const validDocument = `
[dirs]
configs = "/var/lib/airbridge/configs"
output = "/var/lib/airbridge/output"

[[pipelines]]
id = "nightly-stripe"
name = "Nightly Stripe sync"
source_image = "airbyte/source-stripe:1.2.0"
destination_image = "airbyte/destination-duckdb"
schedule = "0 2 * * *"

[pipelines.configs]
source = "s3://pipeline-configs/stripe/config.json"
destination = "/etc/airbridge/duckdb.json"
catalog = "/etc/airbridge/stripe-catalog.json"

[[pipelines]]
id = "hourly-faker"
source_image = "airbyte/source-faker"
schedule = "@hourly"
enabled = false

[pipelines.configs]
source = "/etc/airbridge/faker.json"
catalog = "/etc/airbridge/faker-catalog.json"
`

func writePipelines(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipelines.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestSource_Load(t *testing.T) {
	src := NewSource()

	set, err := src.Load(writePipelines(t, validDocument))

	require.NoError(t, err)
	assert.Equal(t, "/var/lib/airbridge/configs", set.Dirs.Configs)
	assert.Equal(t, "/var/lib/airbridge/output", set.Dirs.Output)
	require.Len(t, set.Pipelines, 2)

	stripe := set.Pipelines[0]
	assert.Equal(t, "nightly-stripe", stripe.ID)
	assert.Equal(t, "Nightly Stripe sync", stripe.Name)
	assert.Equal(t, "airbyte/source-stripe:1.2.0", stripe.SourceImage)
	assert.Equal(t, "airbyte/destination-duckdb", stripe.DestinationImage)
	assert.Equal(t, "0 2 * * *", stripe.Schedule)
	assert.True(t, stripe.Enabled, "enabled defaults to true")
	assert.Equal(t, "s3://pipeline-configs/stripe/config.json", stripe.ConfigDocs["source"])

	faker := set.Pipelines[1]
	assert.False(t, faker.Enabled)
	assert.Empty(t, faker.DestinationImage)
}

func TestSource_Load_Missing(t *testing.T) {
	src := NewSource()

	_, err := src.Load(filepath.Join(t.TempDir(), "nope.toml"))

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSource_Load_InvalidTOML(t *testing.T) {
	src := NewSource()

	_, err := src.Load(writePipelines(t, "[[pipelines\nnot toml"))

	assert.ErrorIs(t, err, domain.ErrConfigInvalid)
}

func TestSource_Load_StructuralValidation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			"missing id",
			`[dirs]
configs = "/c"
output = "/o"
[[pipelines]]
source_image = "img"
schedule = "@hourly"
[pipelines.configs]
source = "/s"
catalog = "/c"`,
		},
		{
			"missing dirs",
			`[[pipelines]]
id = "p"
source_image = "img"
schedule = "@hourly"
[pipelines.configs]
source = "/s"
catalog = "/c"`,
		},
		{
			"duplicate ids",
			`[dirs]
configs = "/c"
output = "/o"
[[pipelines]]
id = "p"
source_image = "img"
schedule = "@hourly"
[pipelines.configs]
source = "/s"
catalog = "/c"
[[pipelines]]
id = "p"
source_image = "img"
schedule = "@hourly"
[pipelines.configs]
source = "/s"
catalog = "/c"`,
		},
		{
			"destination image without destination config",
			`[dirs]
configs = "/c"
output = "/o"
[[pipelines]]
id = "p"
source_image = "img"
destination_image = "dst"
schedule = "@hourly"
[pipelines.configs]
source = "/s"
catalog = "/c"`,
		},
	}

	src := NewSource()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := src.Load(writePipelines(t, tt.doc))
			assert.ErrorIs(t, err, domain.ErrConfigInvalid)
		})
	}
}

func TestSource_Watch_SignalsOnChange(t *testing.T) {
	path := writePipelines(t, validDocument)
	src := NewSource()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := src.Watch(ctx, path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(validDocument+"\n# touched\n"), 0644))

	select {
	case _, ok := <-changes:
		assert.True(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("no change signal received")
	}
}

func TestSource_Watch_IgnoresSiblingFiles(t *testing.T) {
	path := writePipelines(t, validDocument)
	src := NewSource()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := src.Watch(ctx, path)
	require.NoError(t, err)

	sibling := filepath.Join(filepath.Dir(path), "other.toml")
	require.NoError(t, os.WriteFile(sibling, []byte("x = 1"), 0644))

	select {
	case <-changes:
		t.Fatal("sibling file change must not signal")
	case <-time.After(600 * time.Millisecond):
	}
}

func TestSource_Watch_ClosesOnCancel(t *testing.T) {
	path := writePipelines(t, validDocument)
	src := NewSource()
	ctx, cancel := context.WithCancel(context.Background())

	changes, err := src.Watch(ctx, path)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-changes:
		assert.False(t, ok, "channel should close without a signal")
	case <-time.After(3 * time.Second):
		t.Fatal("channel did not close after cancellation")
	}
}

func TestSource_Watch_MissingDirectory(t *testing.T) {
	src := NewSource()

	_, err := src.Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "pipelines.toml"))

	assert.Error(t, err)
}
