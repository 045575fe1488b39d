// main.go - resource machine daemon.
//
// Restores ledger state from the snapshot store, wires the configured proof
// backend and serves the submit API until interrupted.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"resourcemachine/internal/proving"
	"resourcemachine/internal/rm"
	"resourcemachine/internal/store"
)

func main() {
	configPath := flag.String("config", "rmd.yaml", "path to the configuration file")
	flag.Parse()

	config, err := LoadConfig(*configPath)
	if err != nil {
		fallbackLogger := newLogger("info")
		fallbackLogger.Fatal().Err(err).Msg("load config")
	}
	log := newLogger(config.LogLevel)
	if err := config.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	verifier, complianceProgram, err := buildBackend(config)
	if err != nil {
		log.Fatal().Err(err).Msg("build proof backend")
	}
	if config.Backend == BackendInsecure {
		log.Warn().Msg("insecure proof backend enabled, proofs attest nothing")
	}

	st, err := store.Open(config.StorePath)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer st.Close()

	snap, err := st.LoadSnapshot()
	if err != nil {
		log.Fatal().Err(err).Msg("load snapshot")
	}
	machine := rm.RestoreMachine(verifier, complianceProgram, log, snap)
	for _, iss := range config.Issuers {
		pub, err := hex.DecodeString(iss)
		if err != nil {
			log.Fatal().Err(err).Msg("decode issuer key")
		}
		machine.AuthorizeIssuer(pub)
	}
	root := machine.Root()
	log.Info().
		Hex("root", root[:8]).
		Int("commitments", len(snap.Commitments)).
		Str("backend", config.Backend).
		Msg("ledger restored")

	srv := &http.Server{
		Addr:              config.ListenAddr,
		Handler:           newServer(machine, st, log).routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", config.ListenAddr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}
}

// buildBackend wires the verifier the ledger checks proofs with.
func buildBackend(config *Config) (rm.Verifier, rm.Digest, error) {
	switch config.Backend {
	case BackendInsecure:
		return proving.Insecure{}, proving.InsecureComplianceProgram, nil
	case BackendGroth16:
		if err := os.MkdirAll(config.KeyDir, 0755); err != nil {
			return nil, rm.Digest{}, err
		}
		complianceCCS, err := proving.CompileCompliance()
		if err != nil {
			return nil, rm.Digest{}, err
		}
		_, complianceVK, err := proving.SetupOrLoadKeys(complianceCCS,
			filepath.Join(config.KeyDir, "compliance_pk.bin"),
			filepath.Join(config.KeyDir, "compliance_vk.bin"))
		if err != nil {
			return nil, rm.Digest{}, err
		}
		logicCCS, err := proving.CompilePaddingLogic()
		if err != nil {
			return nil, rm.Digest{}, err
		}
		_, logicVK, err := proving.SetupOrLoadKeys(logicCCS,
			filepath.Join(config.KeyDir, "padding_logic_pk.bin"),
			filepath.Join(config.KeyDir, "padding_logic_vk.bin"))
		if err != nil {
			return nil, rm.Digest{}, err
		}
		complianceID, err := proving.ProgramID(complianceVK)
		if err != nil {
			return nil, rm.Digest{}, err
		}
		logicID, err := proving.ProgramID(logicVK)
		if err != nil {
			return nil, rm.Digest{}, err
		}
		registry := proving.NewRegistry()
		registry.Register(complianceID, &proving.Groth16ComplianceVerifier{VK: complianceVK})
		registry.Register(logicID, &proving.Groth16LogicVerifier{VK: logicVK})
		return registry, complianceID, nil
	default:
		return nil, rm.Digest{}, errors.New("unknown backend " + config.Backend)
	}
}
