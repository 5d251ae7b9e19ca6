// Package nodeconfig models the node's persistent configuration
// (spec.md §3, §6): read-only data, config data, domain/address/NV/alias
// tables, program state, configuration checksum, error log, and reset
// cause. It is loaded from and saved to YAML, grounded on the teacher's
// pkg/config.Config/Device struct shape and load/save pipeline, using
// gopkg.in/yaml.v3 directly rather than the teacher's internal/converter
// (that package is a Java-DSL-to-YAML bridge with no LonTalk analogue).
package nodeconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProgramState mirrors the node's EIA-709.1 application state (spec.md §3).
type ProgramState int

const (
	NoApplUnconfig ProgramState = iota
	ApplUnconfig
	ConfigOnline
	ConfigOffline
)

// ResetCause records why the node last reset (spec.md §6, §7).
type ResetCause int

const (
	ResetPowerUp ResetCause = iota
	ResetExternal
	ResetSoftware
	ResetCleared
)

// ClearsTIDTable reports whether this reset cause requires the transaction
// layer's TID table to be cleared (spec.md §6 "External-reset/
// software-reset distinction").
func (r ResetCause) ClearsTIDTable() bool {
	return r == ResetPowerUp || r == ResetExternal
}

// Domain is one of up to two domain-table entries (spec.md §3).
type Domain struct {
	ID     []byte `yaml:"id"` // 0, 1, 3, or 6 bytes
	Subnet byte   `yaml:"subnet"`
	Node   byte   `yaml:"node"`
	Key    [6]byte `yaml:"key"`
	Valid  bool   `yaml:"valid"`
}

// leaveDomainSentinel is the byte pattern written over a domain entry by
// LEAVE_DOMAIN (spec.md §4.7, §9 open question 1): the reference firmware
// writes the literal ASCII bytes "gmrdwf" into the domainId field rather
// than all-0xFF. This is reproduced exactly rather than silently
// corrected — see nodeconfig_test.go's regression test pinning it.
var leaveDomainSentinel = []byte("gmrdwf")

// Leave overwrites a domain entry with the sentinel LEAVE_DOMAIN pattern
// and marks it invalid.
func (d *Domain) Leave() {
	d.ID = append([]byte(nil), leaveDomainSentinel...)
	d.Subnet = 0
	d.Node = 0
	d.Valid = false
}

// AddrTableEntry is one of up to 15 address-table entries (spec.md §3, §6).
type AddrTableEntry struct {
	Mode        int  `yaml:"mode"`
	DomainIndex int  `yaml:"domain_index"`
	Subnet      byte `yaml:"subnet"`
	NodeOrGroup byte `yaml:"node_or_group"`
	RptTimer    int  `yaml:"rpt_timer"`
	RetryCount  int  `yaml:"retry_count"`
	RcvTimer    int  `yaml:"rcv_timer"`
	TxTimer     int  `yaml:"tx_timer"`
	GroupSize   int  `yaml:"group_size"`
}

// Unbound is the sentinel address-table entry type (spec.md §6 "UNBOUND(0)
// is a sentinel in the type field").
const Unbound = 0

// NVConfigEntry describes one statically bound network variable (spec.md §3).
type NVConfigEntry struct {
	Direction int  `yaml:"direction"`
	Selector  int  `yaml:"selector"` // 0..16383
	Priority  bool `yaml:"priority"`
	Service   int  `yaml:"service"`
	Auth      bool `yaml:"auth"`
	Bound     bool `yaml:"bound"`
	Turnaround bool `yaml:"turnaround"`
	Length    int  `yaml:"length"`
}

// NVAliasEntry is an alias slot referencing another NV's index with an
// independent selector (spec.md §3).
type NVAliasEntry struct {
	Primary  int `yaml:"primary"`
	Selector int `yaml:"selector"`
}

// Config is the node's complete persistent state, laid out in the order
// spec.md §6 requires for the NM absolute-memory window: ReadOnlyData,
// ConfigData, DomainTable, AddrTable, NVConfigTable, NVAliasTable,
// ErrorLog, ConfigCheckSum.
type Config struct {
	NodeID       [6]byte         `yaml:"node_id"`
	ProgramID    [8]byte         `yaml:"program_id"`
	TwoDomains   bool            `yaml:"two_domains"`
	NmAuth       bool            `yaml:"nm_auth"`
	ReadWriteProtect bool        `yaml:"read_write_protect"`

	DomainTable  [2]Domain       `yaml:"domain_table"`
	AddrTable    [15]AddrTableEntry `yaml:"addr_table"`
	NVConfigTable []NVConfigEntry `yaml:"nv_config_table"`
	NVAliasTable  []NVAliasEntry  `yaml:"nv_alias_table"`

	ProgramState ProgramState `yaml:"program_state"`
	ErrorLog     []string     `yaml:"error_log"`
	ResetCause   ResetCause   `yaml:"reset_cause"`
	ConfigCheckSum uint16     `yaml:"config_checksum"`
}

// Default builds the factory-default configuration created at first
// power-on (spec.md §3's Lifecycles: "configuration is created at first
// power-on from defaults").
func Default(nodeID [6]byte, programID [8]byte) *Config {
	c := &Config{
		NodeID:     nodeID,
		ProgramID:  programID,
		ProgramState: ApplUnconfig,
		ResetCause: ResetPowerUp,
	}
	c.Recalc()
	return c
}

// Load reads a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nodeconfig: read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("nodeconfig: parse %s: %w", path, err)
	}
	return &c, nil
}

// Save writes the configuration as YAML to path. `lonnode config init`
// uses it; NM command handlers persist through pkg/configstore instead.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("nodeconfig: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("nodeconfig: write %s: %w", path, err)
	}
	return nil
}

// Recalc recomputes and stores the configuration checksum, as
// CHECKSUM_RECALC (0x6F) and every persisting NM mutation must do.
func (c *Config) Recalc() {
	c.ConfigCheckSum = c.computeCheckSum()
}

// computeCheckSum folds every persistent field into a 16-bit checksum. The
// reference firmware's exact checksum algorithm is not specified in detail;
// this uses a running additive/rotate fold over the same field set and
// byte order (domain table, address table, NV tables) so the checksum
// changes under any mutation a handler makes, matching the externally
// observable contract ("Checksum recomputed" on every domain/key/address/
// NV mutation).
func (c *Config) computeCheckSum() uint16 {
	var sum uint16
	fold := func(b byte) {
		sum = (sum << 1) | (sum >> 15)
		sum += uint16(b)
	}
	for _, b := range c.NodeID {
		fold(b)
	}
	for _, b := range c.ProgramID {
		fold(b)
	}
	for _, d := range c.DomainTable {
		for _, b := range d.ID {
			fold(b)
		}
		fold(d.Subnet)
		fold(d.Node)
		for _, b := range d.Key {
			fold(b)
		}
		if d.Valid {
			fold(1)
		} else {
			fold(0)
		}
	}
	for _, a := range c.AddrTable {
		fold(byte(a.Mode))
		fold(byte(a.DomainIndex))
		fold(a.Subnet)
		fold(a.NodeOrGroup)
		fold(byte(a.RptTimer))
		fold(byte(a.RetryCount))
	}
	for _, nv := range c.NVConfigTable {
		fold(byte(nv.Direction))
		fold(byte(nv.Selector))
		fold(byte(nv.Selector >> 8))
		fold(byte(nv.Length))
	}
	for _, al := range c.NVAliasTable {
		fold(byte(al.Primary))
		fold(byte(al.Selector))
	}
	return sum
}
