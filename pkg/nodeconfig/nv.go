package nodeconfig

import "fmt"

// NVIndex decodes the 1-byte or 3-byte (255, hi, lo) escape index encoding
// used by UPDATE_NV_CNFG/QUERY_NV_CNFG/NV_FETCH (spec.md §4.7).
func NVIndex(data []byte) (index int, consumed int, err error) {
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("nodeconfig: empty NV index")
	}
	if data[0] != 0xFF {
		return int(data[0]), 1, nil
	}
	if len(data) < 3 {
		return 0, 0, fmt.Errorf("nodeconfig: truncated 3-byte NV index escape")
	}
	return int(data[1])<<8 | int(data[2]), 3, nil
}

// QueryNV returns either the NVConfigEntry or the NVAliasEntry for index,
// depending on whether it falls below nvTableSize (spec.md §4.7
// "QUERY returns the stored NVStruct or AliasStruct depending on whether
// the index falls below or above nvTableSize").
func (c *Config) QueryNV(index int) (nv *NVConfigEntry, alias *NVAliasEntry, err error) {
	nvTableSize := len(c.NVConfigTable)
	if index < nvTableSize {
		if index < 0 {
			return nil, nil, fmt.Errorf("nodeconfig: negative NV index %d", index)
		}
		return &c.NVConfigTable[index], nil, nil
	}
	aliasIdx := index - nvTableSize
	if aliasIdx < 0 || aliasIdx >= len(c.NVAliasTable) {
		return nil, nil, fmt.Errorf("nodeconfig: NV index %d out of range", index)
	}
	return nil, &c.NVAliasTable[aliasIdx], nil
}

// AllDomainsInvalid reports whether every domain-table entry is invalid,
// which drives LEAVE_DOMAIN's transition to APPL_UNCNFG with a scheduled
// reset (spec.md §4.7).
func (c *Config) AllDomainsInvalid() bool {
	for _, d := range c.DomainTable {
		if d.Valid {
			return false
		}
	}
	return true
}

// UpdateKey adds each byte of delta to the existing domain key modulo 256
// (spec.md §4.7 "UPDATE_KEY adds each byte to the existing key (modular
// 256)").
func (d *Domain) UpdateKey(delta []byte) {
	for i := 0; i < len(d.Key) && i < len(delta); i++ {
		d.Key[i] += delta[i]
	}
}
