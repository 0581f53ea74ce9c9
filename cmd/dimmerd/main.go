// Command dimmerd loads a dimmerd.yaml config, builds the hal driver
// triple for the target it was compiled for, constructs the fire engine
// and every configured dimmer, and periodically logs each dimmer's
// Diagnostics as JSON. It is wiring, not a feature: the encoding/json
// dependency lives here deliberately, kept out of core (§12.7).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"dimmer/config"
	"dimmer/core"
	"dimmer/dimmerlog"
	"dimmer/hal"
)

var log = dimmerlog.New("dimmerd")

var (
	configPath   = flag.String("config", "dimmerd.yaml", "Path to the dimmerd YAML config")
	reportPeriod = flag.Duration("report-period", 5*time.Second, "How often to log dimmer diagnostics")
	debug        = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()
	dimmerlog.EnableDebug(*debug)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dimmerd: %v\n", err)
		os.Exit(1)
	}

	installDrivers()

	engine := core.NewFireEngine()
	if cfg.SemiPeriodUS != 0 {
		engine.SetSemiPeriod(cfg.SemiPeriodUS)
	}

	dimmers := make(map[string]*core.Dimmer, len(cfg.Dimmers))
	for _, dc := range cfg.Dimmers {
		d, err := buildDimmer(engine, dc)
		if err != nil {
			log.Error("%s: %v", dc.Name, err)
			os.Exit(1)
		}
		if dc.DutyCycleLimit != 0 {
			d.SetDutyCycleLimit(dc.DutyCycleLimit)
		}
		if dc.DutyCycleMin != 0 || dc.DutyCycleMax != 0 {
			d.SetDutyCycleMin(dc.DutyCycleMin)
			d.SetDutyCycleMax(dc.DutyCycleMax)
		}
		if dc.PowerLUT {
			d.EnablePowerLUT(true)
		}
		if err := d.Begin(); err != nil {
			log.Error("%s: begin: %v", dc.Name, err)
			os.Exit(1)
		}
		d.SetOnline(true)
		dimmers[dc.Name] = d
		log.Info("%s: %s dimmer ready", dc.Name, d.Type())
	}

	startMainsLoop(engine, cfg.SemiPeriodUS)

	ticker := time.NewTicker(*reportPeriod)
	defer ticker.Stop()
	for range ticker.C {
		reportDiagnostics(dimmers)
	}
}

// buildDimmer dispatches on DimmerConfig.Backend to one of core's
// per-variant constructors.
func buildDimmer(engine *core.FireEngine, dc config.DimmerConfig) (*core.Dimmer, error) {
	switch dc.Backend {
	case "phase_control":
		return core.NewPhaseControlDimmer(engine, hal.Pin(dc.Pin)), nil

	case "pwm":
		return core.NewPWMDimmer(hal.PWMPin(dc.Pin), dc.PWMFrequencyHz, dc.PWMResolutionBits), nil

	case "dac_i2c":
		sku, err := parseDACSKU(dc.DACSKU)
		if err != nil {
			return nil, err
		}
		rng, err := parseDACRange(dc.DACRange)
		if err != nil {
			return nil, err
		}
		return core.NewDACDimmer(hal.I2CAddress(dc.I2CAddress), sku, dc.DACChannel, rng), nil

	case "burst":
		return core.NewBurstDimmer(engine, hal.Pin(dc.Pin), dc.BurstWindow), nil

	case "virtual":
		return core.NewVirtualDimmer(), nil

	default:
		return nil, fmt.Errorf("unknown backend %q", dc.Backend)
	}
}

func parseDACSKU(s string) (core.DFRobotSKU, error) {
	switch s {
	case "gp8211s":
		return core.DFR1071GP8211S, nil
	case "gp8413":
		return core.DFR1073GP8413, nil
	case "gp8403":
		return core.DFR0971GP8403, nil
	case "mcp4725":
		return core.GenericMCP4725, nil
	default:
		return core.DFRobotUnknown, fmt.Errorf("unknown dac_sku %q", s)
	}
}

func parseDACRange(s string) (core.DFRobotOutputRange, error) {
	switch s {
	case "", "0-10v":
		return core.DFRobotRange0to10V, nil
	case "0-5v":
		return core.DFRobotRange0to5V, nil
	default:
		return 0, fmt.Errorf("unknown dac_range %q", s)
	}
}

func reportDiagnostics(dimmers map[string]*core.Dimmer) {
	snapshot := make(map[string]core.Diagnostics, len(dimmers))
	for name, d := range dimmers {
		snapshot[name] = d.CollectDiagnostics(5)
	}
	out, err := json.Marshal(snapshot)
	if err != nil {
		log.Error("marshal diagnostics: %v", err)
		return
	}
	fmt.Println(string(out))
}
