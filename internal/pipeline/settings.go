package pipeline

import (
	"ionbatch/internal/chem"
	"ionbatch/internal/config"
	"ionbatch/internal/identify"
	"ionbatch/internal/ionization"
	"ionbatch/internal/services"
)

// runSettings are the config values parsed into domain types once per run.
type runSettings struct {
	identify identify.Settings
	resolver ionization.Options
	elements chem.ElementConstraints
	ionTypes []chem.IonType
}

func buildSettings(cfg *config.Config, opts Options) (runSettings, error) {
	var rs runSettings

	mode, err := identify.ParseIsotopeMode(cfg.Identification.IsotopeMode)
	if err != nil {
		return rs, services.Wrap(services.ErrConfiguration, "pipeline", "settings", "isotope mode", err)
	}
	for _, raw := range cfg.Ionization.IonTypes {
		ion, err := chem.ParseIonType(raw)
		if err != nil {
			return rs, services.Wrap(services.ErrConfiguration, "pipeline", "settings", "ion type", err)
		}
		rs.ionTypes = append(rs.ionTypes, ion)
	}
	if cfg.Ingest.Elements != "" {
		if rs.elements, err = chem.ParseElementConstraints(cfg.Ingest.Elements); err != nil {
			return rs, services.Wrap(services.ErrConfiguration, "pipeline", "settings", "element constraints", err)
		}
	}

	rs.identify = identify.Settings{
		TreeTimeout:     cfg.TreeTimeout(),
		InstanceTimeout: cfg.InstanceTimeout(),
		Candidates:      cfg.Identification.Candidates,
		CandidatesSet:   opts.CandidatesSet,
		IsotopeMode:     mode,
		Formulas:        append([]chem.Formula(nil), opts.Formulas...),
		PPMMax:          cfg.Identification.PPMMax,
	}
	rs.resolver = ionization.Options{
		AutoCharge: cfg.Ionization.AutoCharge,
		IonTypes:   rs.ionTypes,
		TrustMS1:   cfg.Ionization.TrustMS1,
	}
	return rs, nil
}
