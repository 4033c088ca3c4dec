// Config generalizes the teacher's node/config.go Config/DefaultConfig/
// ValidateConfig/NormalizePeers to the deployment parameters spec §6.4
// names: network identity and networking stay as the teacher shaped them,
// and MaxUnitLength/MaxComplexity/WitnessListLockMCI/StorageBackend stand in
// for the teacher's UTXO-chain-specific fields this ledger doesn't carry.
package node

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/dag/mainchain"
	"witnessdag.dev/core/dag/validate"
	"witnessdag.dev/core/node/p2p"
)

// Config is the full set of values a witnessdag-node process needs to
// start: network identity, storage location, peer networking, and the
// deployment-chosen consensus parameters spec §6.4 and Open Question 2
// (witness-list lock height) leave to the operator.
type Config struct {
	Network  string   `json:"network" yaml:"network"`
	DataDir  string   `json:"data_dir" yaml:"data_dir"`
	BindAddr string   `json:"bind_addr" yaml:"bind_addr"`
	LogLevel string   `json:"log_level" yaml:"log_level"`
	Peers    []string `json:"peers" yaml:"peers"`
	MaxPeers int      `json:"max_peers" yaml:"max_peers"`

	// StorageBackend names the storage.Store implementation to open
	// (spec §6.4 MAX_UNIT_LENGTH/MAX_COMPLEXITY/STORAGE_BACKEND env vars).
	// "bbolt" is the only backend node/store implements today.
	StorageBackend string `json:"storage_backend" yaml:"storage_backend"`

	// MaxUnitLength is MAX_UNIT_LENGTH (spec §6.4), the serialized-unit byte
	// ceiling checkShape enforces.
	MaxUnitLength int `json:"max_unit_length" yaml:"max_unit_length"`
	// MaxComplexity is MAX_COMPLEXITY (spec §6.4). ValidateConfig requires
	// it to be positive and ValidateParams copies it into validate.Params,
	// but the evaluator does not read it: definitions are always checked
	// against the fixed script.CMax ceiling of 100.
	MaxComplexity int `json:"max_complexity" yaml:"max_complexity"`
	// WitnessListLockMCI resolves Open Question 2: the MCI at and below
	// which a unit's witness list must already have been observed,
	// deployment-chosen rather than protocol-fixed.
	WitnessListLockMCI int64 `json:"witness_list_lock_mci" yaml:"witness_list_lock_mci"`

	// SStep overrides mainchain.Params.SStep; zero means DefaultParams'
	// production value of 10.
	SStep int64 `json:"s_step" yaml:"s_step"`

	// GenesisUnit is the deployment's genesis unit id, the handshake's
	// network-identity check (node/p2p.Handshake's genesis_unit comparison
	// stands in for the teacher's chain-id comparison, since witnessdag has
	// no separate chain-id constant: the genesis unit already uniquely
	// identifies a deployment).
	GenesisUnit string `json:"genesis_unit" yaml:"genesis_unit"`
	// Magic is the wire envelope's magic number (node/p2p.WriteMessage),
	// kept distinct per network so a misconfigured peer disconnects at the
	// framing layer before it ever reaches the handshake.
	Magic uint32 `json:"magic" yaml:"magic"`
}

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

var allowedStorageBackends = map[string]struct{}{
	"bbolt": {},
}

// DefaultDataDir mirrors the teacher's DefaultDataDir, renamed to this
// project's dotfile.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".witnessdag"
	}
	return filepath.Join(home, ".witnessdag")
}

// DefaultConfig returns the values a fresh devnet node starts from,
// carrying spec §6.4's stated defaults (MAX_UNIT_LENGTH, MAX_COMPLEXITY)
// and mainchain.DefaultParams' S_STEP.
func DefaultConfig() Config {
	return Config{
		Network:            "devnet",
		DataDir:            DefaultDataDir(),
		BindAddr:           "0.0.0.0:19999",
		Peers:              nil,
		LogLevel:           "info",
		MaxPeers:           64,
		StorageBackend:     "bbolt",
		MaxUnitLength:      validate.SMax,
		MaxComplexity:      100,
		WitnessListLockMCI: 0,
		SStep:              mainchain.SStep,
		GenesisUnit:        "GENESIS/devnet",
		Magic:              0x57444147, // "WDAG"
	}
}

// NormalizePeers dedupes and comma-splits raw peer tokens, identical to the
// teacher's NormalizePeers.
func NormalizePeers(raw ...string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, token := range raw {
		for _, p := range strings.Split(token, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig checks cfg the way the teacher's ValidateConfig does,
// extended with the consensus-parameter and storage-backend fields this
// project adds.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Network) == "" {
		return errors.New("network is required")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("data_dir is required")
	}
	if err := validateAddr(cfg.BindAddr); err != nil {
		return fmt.Errorf("invalid bind_addr: %w", err)
	}
	for _, peer := range cfg.Peers {
		if err := validatePeerAddr(peer); err != nil {
			return fmt.Errorf("invalid peer %q: %w", peer, err)
		}
	}
	logLevel := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if _, ok := allowedLogLevels[logLevel]; !ok {
		return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
	if cfg.MaxPeers <= 0 {
		return errors.New("max_peers must be > 0")
	}
	if cfg.MaxPeers > 4096 {
		return errors.New("max_peers must be <= 4096")
	}
	backend := strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	if _, ok := allowedStorageBackends[backend]; !ok {
		return fmt.Errorf("invalid storage_backend %q", cfg.StorageBackend)
	}
	if cfg.MaxUnitLength <= 0 {
		return errors.New("max_unit_length must be > 0")
	}
	if cfg.MaxComplexity <= 0 {
		return errors.New("max_complexity must be > 0")
	}
	if cfg.WitnessListLockMCI < 0 {
		return errors.New("witness_list_lock_mci must be >= 0")
	}
	if cfg.SStep < 0 {
		return errors.New("s_step must be >= 0")
	}
	if strings.TrimSpace(cfg.GenesisUnit) == "" {
		return errors.New("genesis_unit is required")
	}
	if cfg.Magic == 0 {
		return errors.New("magic must be nonzero")
	}
	return nil
}

// ValidateParams projects cfg's consensus fields into dag/validate.Params.
func (cfg Config) ValidateParams() validate.Params {
	return validate.Params{
		MaxUnitLength:      cfg.MaxUnitLength,
		MaxComplexity:      cfg.MaxComplexity,
		WitnessListLockMCI: cfg.WitnessListLockMCI,
	}
}

// MainchainParams projects cfg's S_STEP override into mainchain.Params,
// falling back to mainchain.DefaultParams' value when unset.
func (cfg Config) MainchainParams() mainchain.Params {
	if cfg.SStep <= 0 {
		return mainchain.DefaultParams()
	}
	return mainchain.Params{SStep: cfg.SStep}
}

// PeerConfig projects cfg into the node/p2p.PeerConfig every accepted or
// dialed connection is built from, pairing it with the handshake's own
// version announcement.
func (cfg Config) PeerConfig(hp dag.HashProvider, userAgent string) p2p.PeerConfig {
	return p2p.PeerConfig{
		Magic:       cfg.Magic,
		GenesisUnit: cfg.GenesisUnit,
		Hash:        hp,
		OurVersion: p2p.VersionPayload{
			ProtocolVersion: p2p.ProtocolVersionV1,
			GenesisUnit:     cfg.GenesisUnit,
			UserAgent:       userAgent,
			Relay:           true,
		},
	}
}

func validateAddr(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("empty address")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if strings.TrimSpace(port) == "" {
		return errors.New("missing port")
	}
	if strings.Contains(host, " ") {
		return errors.New("invalid host")
	}
	return nil
}

func validatePeerAddr(addr string) error {
	if err := validateAddr(addr); err != nil {
		return err
	}
	host, _, _ := net.SplitHostPort(addr)
	if strings.TrimSpace(host) == "" {
		return errors.New("missing host")
	}
	return nil
}
