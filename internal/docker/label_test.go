package docker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/dockhand/internal/model"
)

// TestBuildLabels verifies that BuildLabels correctly converts a Deployment
// into a Docker label map with all required keys and values.
func TestBuildLabels(t *testing.T) {
	// Arrange: create a Deployment with known values including port mappings.
	createdAt := time.Date(2026, 2, 28, 10, 0, 0, 0, time.UTC)
	d := &model.Deployment{
		Name:      "saxo-autotrader",
		Project:   "saxo-autotrader",
		Image:     "saxo-autotrader:latest",
		BuildID:   "0b51a4de-5c1b-4268-a33c-7f6f0c6b4d7e",
		EnvSource: model.EnvSourceFile,
		Ports: []model.PortMapping{
			{ContainerPort: 5000, HostPort: 5000, Protocol: "tcp"},
			{ContainerPort: 8080, HostPort: 49153, Protocol: "tcp"},
		},
		CreatedAt: createdAt,
	}

	// Act
	labels := BuildLabels(d)

	// Assert: verify all static labels are present and correct.
	assert.Equal(t, ManagedByValue, labels[LabelManagedBy],
		"managed-by label should always be set to the constant value")
	assert.Equal(t, "saxo-autotrader", labels[LabelProject])
	assert.Equal(t, "saxo-autotrader:latest", labels[LabelImage])
	assert.Equal(t, "0b51a4de-5c1b-4268-a33c-7f6f0c6b4d7e", labels[LabelBuildID])
	assert.Equal(t, "file", labels[LabelEnvSource])
	assert.Equal(t, "2026-02-28T10:00:00Z", labels[LabelCreatedAt])

	// Assert: verify port mapping labels.
	assert.Equal(t, "5000", labels["dockhand.port.5000"],
		"port 5000 should be mapped to host port 5000")
	assert.Equal(t, "49153", labels["dockhand.port.8080"],
		"port 8080 should be mapped to host port 49153")

	// Assert: verify total label count (6 static + 2 port = 8).
	assert.Len(t, labels, 8, "expected 6 static labels + 2 port labels")
}

// TestBuildLabels_NoBuildID verifies that the build-id label is omitted for
// deployments running externally built images.
func TestBuildLabels_NoBuildID(t *testing.T) {
	d := &model.Deployment{
		Name:      "prebuilt",
		Project:   "prebuilt",
		Image:     "registry.example.com/prebuilt:v3",
		EnvSource: model.EnvSourcePlatform,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	labels := BuildLabels(d)

	assert.NotContains(t, labels, LabelBuildID,
		"externally built images have no build to reference")
	assert.Len(t, labels, 5)
	assert.Equal(t, "platform", labels[LabelEnvSource])
}

// TestParseLabels verifies that ParseLabels correctly reconstructs a
// Deployment from a Docker label map. This is the inverse of BuildLabels.
func TestParseLabels(t *testing.T) {
	// Arrange: create a label map matching what BuildLabels would produce.
	labels := map[string]string{
		LabelManagedBy:       ManagedByValue,
		LabelProject:         "saxo-autotrader",
		LabelImage:           "saxo-autotrader:latest",
		LabelBuildID:         "0b51a4de-5c1b-4268-a33c-7f6f0c6b4d7e",
		LabelEnvSource:       "file",
		LabelCreatedAt:       "2026-02-28T10:00:00Z",
		"dockhand.port.5000": "5000",
		"dockhand.port.8080": "49153",
	}

	// Act
	d, err := ParseLabels(labels)

	// Assert: no error and all fields are correctly populated.
	require.NoError(t, err, "ParseLabels should succeed with valid labels")
	assert.Equal(t, "saxo-autotrader", d.Project)
	assert.Equal(t, "saxo-autotrader:latest", d.Image)
	assert.Equal(t, "0b51a4de-5c1b-4268-a33c-7f6f0c6b4d7e", d.BuildID)
	assert.Equal(t, model.EnvSourceFile, d.EnvSource)
	assert.Equal(t, time.Date(2026, 2, 28, 10, 0, 0, 0, time.UTC), d.CreatedAt)

	// Assert: port mappings were parsed and sorted by container port.
	require.Len(t, d.Ports, 2, "should have 2 port mappings")
	assert.Equal(t, 5000, d.Ports[0].ContainerPort)
	assert.Equal(t, 5000, d.Ports[0].HostPort)
	assert.Equal(t, 8080, d.Ports[1].ContainerPort)
	assert.Equal(t, 49153, d.Ports[1].HostPort)
}

// TestParseLabels_NoBuildID verifies that a missing build-id label parses
// into an empty BuildID rather than an error.
func TestParseLabels_NoBuildID(t *testing.T) {
	labels := map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelProject:   "prebuilt",
		LabelImage:     "registry.example.com/prebuilt:v3",
		LabelEnvSource: "platform",
		LabelCreatedAt: "2026-01-01T00:00:00Z",
	}

	d, err := ParseLabels(labels)
	require.NoError(t, err)
	assert.Empty(t, d.BuildID)
	assert.Empty(t, d.Ports, "should have no port mappings")
}

// TestParseLabels_MissingRequired verifies that ParseLabels returns an
// error when required labels are missing from the label map.
func TestParseLabels_MissingRequired(t *testing.T) {
	// Sub-test table: each test case removes one required label to verify
	// that its absence is detected.
	testCases := []struct {
		name       string
		missingKey string
	}{
		{"missing managed-by", LabelManagedBy},
		{"missing project", LabelProject},
		{"missing image", LabelImage},
		{"missing env-source", LabelEnvSource},
		{"missing created-at", LabelCreatedAt},
	}

	for _, tc := range testCases {
		// t.Run creates a named sub-test, which makes test output clearer
		// and allows running individual sub-tests with -run flag.
		t.Run(tc.name, func(t *testing.T) {
			// Start with a complete valid label set.
			labels := map[string]string{
				LabelManagedBy: ManagedByValue,
				LabelProject:   "test",
				LabelImage:     "test:latest",
				LabelEnvSource: "file",
				LabelCreatedAt: "2026-01-01T00:00:00Z",
			}

			// Remove the label under test.
			delete(labels, tc.missingKey)

			_, err := ParseLabels(labels)
			require.Error(t, err, "should fail when %s is missing", tc.missingKey)
			assert.Contains(t, err.Error(), tc.missingKey,
				"error message should mention the missing label key")
		})
	}
}

// TestParseLabels_InvalidManagedBy verifies that ParseLabels rejects
// containers with an unexpected managed-by value.
func TestParseLabels_InvalidManagedBy(t *testing.T) {
	labels := map[string]string{
		LabelManagedBy: "some-other-tool",
		LabelProject:   "test",
		LabelImage:     "test:latest",
		LabelEnvSource: "file",
		LabelCreatedAt: "2026-01-01T00:00:00Z",
	}

	_, err := ParseLabels(labels)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected value")
}

// TestParseLabels_InvalidEnvSource verifies that ParseLabels returns an
// error when the env-source label has an invalid value.
func TestParseLabels_InvalidEnvSource(t *testing.T) {
	labels := map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelProject:   "test",
		LabelImage:     "test:latest",
		LabelEnvSource: "baked-into-image",
		LabelCreatedAt: "2026-01-01T00:00:00Z",
	}

	_, err := ParseLabels(labels)
	require.Error(t, err)
	assert.Contains(t, err.Error(), LabelEnvSource)
}

// TestParseLabels_InvalidCreatedAt verifies that ParseLabels returns
// an error when the created-at label has an unparseable timestamp.
func TestParseLabels_InvalidCreatedAt(t *testing.T) {
	labels := map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelProject:   "test",
		LabelImage:     "test:latest",
		LabelEnvSource: "file",
		LabelCreatedAt: "not-a-timestamp",
	}

	_, err := ParseLabels(labels)
	require.Error(t, err)
	assert.Contains(t, err.Error(), LabelCreatedAt)
}

// TestBuildPortLabel verifies that BuildPortLabel generates the correct
// label key format for various port numbers.
func TestBuildPortLabel(t *testing.T) {
	testCases := []struct {
		containerPort int
		expected      string
	}{
		{5000, "dockhand.port.5000"},
		{80, "dockhand.port.80"},
		{443, "dockhand.port.443"},
		{8080, "dockhand.port.8080"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			result := BuildPortLabel(tc.containerPort)
			assert.Equal(t, tc.expected, result)
		})
	}
}

// TestParsePortLabels verifies that ParsePortLabels correctly extracts
// port mappings from a label map containing mixed labels (both port and
// non-port labels).
func TestParsePortLabels(t *testing.T) {
	labels := map[string]string{
		// Non-port labels should be ignored.
		LabelManagedBy: ManagedByValue,
		LabelProject:   "test",
		// Port labels to be parsed.
		"dockhand.port.5000": "5000",
		"dockhand.port.8080": "49153",
		"dockhand.port.9000": "49154",
	}

	mappings, err := ParsePortLabels(labels)
	require.NoError(t, err)
	require.Len(t, mappings, 3, "should extract exactly 3 port mappings")

	// Results are sorted by container port, so positional asserts are safe.
	assert.Equal(t, 5000, mappings[0].ContainerPort)
	assert.Equal(t, 5000, mappings[0].HostPort)
	assert.Equal(t, 8080, mappings[1].ContainerPort)
	assert.Equal(t, 49153, mappings[1].HostPort)
	assert.Equal(t, 9000, mappings[2].ContainerPort)
	assert.Equal(t, 49154, mappings[2].HostPort)

	for _, pm := range mappings {
		// Verify default protocol is set.
		assert.Equal(t, "tcp", pm.Protocol, "protocol should default to tcp")
	}
}

// TestParsePortLabels_Empty verifies that ParsePortLabels returns an
// empty slice when no port labels are present.
func TestParsePortLabels_Empty(t *testing.T) {
	labels := map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelProject:   "test",
	}

	mappings, err := ParsePortLabels(labels)
	require.NoError(t, err)
	assert.Empty(t, mappings, "should return empty slice when no port labels exist")
}

// TestParsePortLabels_InvalidFormat verifies that ParsePortLabels returns
// errors for malformed port labels (non-numeric port numbers or values).
func TestParsePortLabels_InvalidFormat(t *testing.T) {
	t.Run("non-numeric container port", func(t *testing.T) {
		labels := map[string]string{
			"dockhand.port.abc": "5000",
		}

		_, err := ParsePortLabels(labels)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid container port",
			"error should describe the issue with the container port")
	})

	t.Run("non-numeric host port", func(t *testing.T) {
		labels := map[string]string{
			"dockhand.port.5000": "not-a-port",
		}

		_, err := ParsePortLabels(labels)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid host port",
			"error should describe the issue with the host port value")
	})
}

// TestFilterLabels verifies that FilterLabels returns the correct
// filter map for listing managed containers.
func TestFilterLabels(t *testing.T) {
	filters := FilterLabels()

	// The filter should contain exactly one entry: the managed-by label.
	require.Len(t, filters, 1, "filter should contain exactly one label")
	assert.Equal(t, ManagedByValue, filters[LabelManagedBy],
		"filter should match the managed-by label value")
}

// TestBuildAndParseLabelRoundTrip verifies that building labels from a
// Deployment and parsing them back produces an equivalent Deployment.
// This is a critical integration-style test that ensures the two functions
// are inverse operations.
func TestBuildAndParseLabelRoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	original := &model.Deployment{
		Name:      "roundtrip-test",
		Project:   "roundtrip-test",
		Image:     "roundtrip-test:latest",
		BuildID:   "27e1b7a2-9a74-4d38-9a3f-52cb25d86a11",
		EnvSource: model.EnvSourceFile,
		Ports: []model.PortMapping{
			{ContainerPort: 5000, HostPort: 49160, Protocol: "tcp"},
		},
		CreatedAt: createdAt,
	}

	// Build labels, then parse them back.
	labels := BuildLabels(original)
	parsed, err := ParseLabels(labels)
	require.NoError(t, err)

	// Compare the fields that are preserved through labels.
	// Note: Name, Status and ContainerID are NOT persisted in labels,
	// so they are excluded from comparison.
	assert.Equal(t, original.Project, parsed.Project)
	assert.Equal(t, original.Image, parsed.Image)
	assert.Equal(t, original.BuildID, parsed.BuildID)
	assert.Equal(t, original.EnvSource, parsed.EnvSource)
	assert.Equal(t, original.CreatedAt.UTC(), parsed.CreatedAt.UTC())

	require.Len(t, parsed.Ports, len(original.Ports))
	assert.Equal(t, original.Ports[0].ContainerPort, parsed.Ports[0].ContainerPort)
	assert.Equal(t, original.Ports[0].HostPort, parsed.Ports[0].HostPort)
}
