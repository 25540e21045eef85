package inventory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/a3tai/formkey/internal/fingerprint"
	"github.com/a3tai/formkey/internal/formerr"
)

// Save writes the inventory artifact as indented JSON
func Save(path string, inv *Inventory) error {
	data, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode inventory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write inventory: %w", err)
	}
	return nil
}

// Load reads an inventory artifact and checks it is internally consistent.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}

	var inv Inventory
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, formerr.Wrap(formerr.ErrorTypeInvalidArtifact, path, err)
	}
	if err := inv.Check(); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Check validates record keys and indices against the records.
func (inv *Inventory) Check() error {
	if inv.Records == nil {
		inv.Records = make(map[string]*FieldRecord)
	}
	for key, r := range inv.Records {
		if r == nil {
			return formerr.Newf(formerr.ErrorTypeInvalidArtifact, key, "record is null")
		}
		if !fingerprint.Valid(key) {
			return formerr.Newf(formerr.ErrorTypeInvalidArtifact, key, "malformed fingerprint key")
		}
		if r.Fingerprint != key {
			return formerr.Newf(formerr.ErrorTypeInvalidArtifact, key, "record carries fingerprint %q", r.Fingerprint)
		}
	}
	if inv.TotalFields != len(inv.Records) {
		return formerr.Newf(formerr.ErrorTypeInvalidArtifact, "", "totalFields is %d but %d records are present",
			inv.TotalFields, len(inv.Records))
	}
	for _, index := range []map[string][]string{inv.BySection, inv.BySubsection} {
		for bucket, ids := range index {
			for _, id := range ids {
				if _, ok := inv.Records[id]; !ok {
					return formerr.Newf(formerr.ErrorTypeInvalidArtifact, bucket, "index references unknown fingerprint %s", id)
				}
			}
		}
	}
	return nil
}
