package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/navstack/utils/config"
	"gopkg.in/yaml.v2"
)

const sample = `
input:
  map:
    file: data/town.yaml
control:
  step:
    start: 0
    total: 600
    interval: 0.05
scenario:
  kind: behavior
  behavior: cautious
  seed: 3
  spawn: {x: 0, y: 0, z: 0}
  destination: {x: 80, y: 0, z: 0}
output:
  sqlite: out.db
`

func TestRuntimeConfigDefaults(t *testing.T) {
	var c config.Config
	require.NoError(t, yaml.UnmarshalStrict([]byte(sample), &c))
	rc, err := config.NewRuntimeConfig(c)
	require.NoError(t, err)

	assert.Equal(t, 4.5, rc.Agent.SamplingResolution)
	assert.Equal(t, 0.05, rc.Agent.Planner.DT)
	assert.Equal(t, 10000, rc.Agent.Planner.QueueCapacity)
	require.NotNil(t, rc.Behavior)
	assert.Equal(t, 40.0, rc.Behavior.MaxSpeed)
	assert.Equal(t, 6.0, rc.Behavior.BrakingDistance)
	assert.Equal(t, "out.db", rc.All.Output.SQLite)
}

func TestRuntimeConfigRejectsUnknownKey(t *testing.T) {
	var c config.Config
	err := yaml.UnmarshalStrict([]byte(sample+"\nunknown: 1\n"), &c)
	assert.Error(t, err)
}

func TestRuntimeConfigValidation(t *testing.T) {
	c := config.Config{
		Control:  config.Control{Step: config.ControlStep{Total: 0, Interval: 0}},
		Scenario: config.Scenario{Kind: "tank"},
	}
	_, err := config.NewRuntimeConfig(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input")
	assert.Contains(t, err.Error(), "step.interval")
	assert.Contains(t, err.Error(), "step.total")
	assert.Contains(t, err.Error(), "unknown agent kind")

	agent := config.DefaultAgent()
	agent.MaxBrake = 2
	agent.Planner.MaxSteering = -1
	assert.Error(t, agent.Validate())
	assert.NoError(t, config.DefaultAgent().Validate())
}

func TestBehaviorPreset(t *testing.T) {
	b, err := config.BehaviorPreset("aggressive")
	require.NoError(t, err)
	assert.Equal(t, 70.0, b.MaxSpeed)
	assert.Equal(t, -1, b.TailgateCounter)
	_, err = config.BehaviorPreset("sleepy")
	assert.Error(t, err)
}

func TestRuntimeConfigPartialAgent(t *testing.T) {
	const head = `
input:
  map:
    file: data/town.yaml
control:
  step:
    total: 10
    interval: 0.1
`
	cases := map[string]struct {
		scenario   string
		resolution float64
	}{
		"basic": {`
scenario:
  kind: basic
  agent:
    target_speed: 30
    planner:
      max_throttle: 0.5
`, 2},
		"behavior": {`
scenario:
  kind: behavior
  agent: {target_speed: 30, planner: {max_throttle: 0.5}}
`, 4.5},
		"explicit resolution": {`
scenario:
  agent: {target_speed: 30, sampling_resolution: 3, planner: {max_throttle: 0.5}}
  kind: behavior
`, 3},
	}
	for name, c := range cases {
		var cfg config.Config
		require.NoError(t, yaml.UnmarshalStrict([]byte(head+c.scenario), &cfg), name)
		rc, err := config.NewRuntimeConfig(cfg)
		require.NoError(t, err, name)

		want := config.DefaultAgent()
		assert.Equal(t, 30.0, rc.Agent.TargetSpeed, name)
		assert.Equal(t, c.resolution, rc.Agent.SamplingResolution, name)
		assert.Equal(t, want.MaxBrake, rc.Agent.MaxBrake, name)
		assert.Equal(t, want.BaseVehicleThreshold, rc.Agent.BaseVehicleThreshold, name)
		assert.Equal(t, 0.5, rc.Agent.Planner.MaxThrottle, name)
		assert.Equal(t, want.Planner.MaxBrake, rc.Agent.Planner.MaxBrake, name)
		assert.Equal(t, want.Planner.SamplingRadius, rc.Agent.Planner.SamplingRadius, name)
		assert.Equal(t, want.Planner.QueueCapacity, rc.Agent.Planner.QueueCapacity, name)
		assert.Equal(t, want.Planner.LateralPID.KP, rc.Agent.Planner.LateralPID.KP, name)
		assert.Equal(t, 0.1, rc.Agent.Planner.DT, name)
	}

	var cfg config.Config
	err := yaml.UnmarshalStrict([]byte(head+"scenario:\n  kind: basic\n  agent: {target_sped: 30}\n"), &cfg)
	assert.Error(t, err, "unknown agent field")
}
