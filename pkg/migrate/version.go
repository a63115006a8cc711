package migrate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/beam-cloud/searchmigrate/pkg/repository"
	"github.com/beam-cloud/searchmigrate/pkg/search"
	"github.com/beam-cloud/searchmigrate/pkg/types"
	"github.com/rs/zerolog/log"
)

// VersionName returns the physical index name for version of alias
func VersionName(alias string, version int) string {
	return fmt.Sprintf("%s_v%d", alias, version)
}

// ParseVersion extracts N from "{alias}_vN". Only plain decimal digits are accepted.
func ParseVersion(alias, physical string) (int, bool) {
	suffix, ok := strings.CutPrefix(physical, alias+"_v")
	if !ok || suffix == "" {
		return 0, false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	version, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return version, true
}

// SplitVersion splits a physical name on its last "_v" into alias and version
func SplitVersion(physical string) (string, int, bool) {
	i := strings.LastIndex(physical, "_v")
	if i <= 0 {
		return "", 0, false
	}
	alias := physical[:i]
	version, ok := ParseVersion(alias, physical)
	return alias, version, ok
}

// AliasObservation is what the backend reports for a logical index name
type AliasObservation struct {
	Alias string           `json:"alias"`
	State types.AliasState `json:"state"`

	// Bindings maps each physical index holding the alias to all of its aliases
	Bindings map[string][]string `json:"bindings"`

	// Current is the single bound physical index (SINGLE_VERSION and STEADY only)
	Current        string `json:"current,omitempty"`
	CurrentVersion int    `json:"current_version,omitempty"`

	// Versions lists every "{alias}_vN" present on the backend, ascending
	Versions []int `json:"versions"`
}

// VersionManager owns the mapping from an alias to its versioned physical indices
type VersionManager struct {
	backend    SearchBackend
	ledger     repository.VersionLedger
	template   search.Template
	atomicSwap bool
}

// NewVersionManager bounds ledger calls with a default deadline unless ledger
// is already a *repository.TimeoutLedger.
func NewVersionManager(backend SearchBackend, ledger repository.VersionLedger, tmpl search.Template, atomicSwap bool) *VersionManager {
	if _, ok := ledger.(*repository.TimeoutLedger); !ok {
		ledger = repository.NewTimeoutLedger(ledger, 0)
	}
	return &VersionManager{
		backend:    backend,
		ledger:     ledger,
		template:   tmpl,
		atomicSwap: atomicSwap,
	}
}

// Observe reads alias bindings and existing versions and classifies them.
// Shapes outside the known states are returned as ErrAliasStateConflict.
func (m *VersionManager) Observe(ctx context.Context, alias string) (*AliasObservation, error) {
	resolved, err := m.backend.GetAliases(ctx, alias)
	if err != nil {
		return nil, fmt.Errorf("get aliases for %s: %w", alias, err)
	}

	indices, err := m.backend.ListIndices(ctx, alias+"_v*")
	if err != nil {
		return nil, fmt.Errorf("list versions of %s: %w", alias, err)
	}

	obs := &AliasObservation{
		Alias:    alias,
		Bindings: make(map[string][]string),
	}
	for _, name := range indices {
		if version, ok := ParseVersion(alias, name); ok {
			obs.Versions = append(obs.Versions, version)
		}
	}
	sort.Ints(obs.Versions)

	// A concrete index answering to the alias name is keyed by the alias itself
	if _, ok := resolved[alias]; ok {
		obs.State = types.AliasStateLegacyIndex
		obs.Bindings = resolved
		if len(resolved) > 1 {
			return obs, &types.ErrAliasStateConflict{Alias: alias, Reason: "legacy index and alias bindings both present", Bindings: resolved}
		}
		return obs, nil
	}

	for index, aliases := range resolved {
		for _, a := range aliases {
			if a == alias {
				obs.Bindings[index] = aliases
				break
			}
		}
	}

	switch len(obs.Bindings) {
	case 0:
		obs.State = types.AliasStateNoAlias
		return obs, nil
	case 1:
	default:
		obs.State = types.AliasStateTransitioning
		return obs, nil
	}

	for index := range obs.Bindings {
		obs.Current = index
	}
	version, ok := ParseVersion(alias, obs.Current)
	if !ok || version < 1 {
		return obs, &types.ErrAliasStateConflict{Alias: alias, Reason: "bound to an unversioned index", Bindings: obs.Bindings}
	}
	obs.CurrentVersion = version

	obs.State = types.AliasStateSingleVersion
	for _, v := range obs.Versions {
		if v != version {
			obs.State = types.AliasStateSteady
			break
		}
	}
	return obs, nil
}

// ResolveCurrent returns the single physical index the alias targets, if any
func (m *VersionManager) ResolveCurrent(ctx context.Context, alias string) (string, bool, error) {
	obs, err := m.Observe(ctx, alias)
	if err != nil {
		return "", false, err
	}

	switch obs.State {
	case types.AliasStateSingleVersion, types.AliasStateSteady:
		return obs.Current, true, nil
	case types.AliasStateTransitioning:
		return "", false, &types.ErrAliasStateConflict{Alias: alias, Reason: "bound to multiple indices", Bindings: obs.Bindings}
	default:
		return "", false, nil
	}
}

// NextVersion is one past the highest version ever issued, bound, or present
func (m *VersionManager) NextVersion(ctx context.Context, obs *AliasObservation) (int, error) {
	highest, err := m.ledger.HighestVersion(ctx, obs.Alias)
	if err != nil {
		return 0, fmt.Errorf("read version ledger for %s: %w", obs.Alias, err)
	}

	if obs.CurrentVersion > highest {
		highest = obs.CurrentVersion
	}
	for _, v := range obs.Versions {
		if v > highest {
			highest = v
		}
	}
	return highest + 1, nil
}

// ProvisionNewVersion creates the next, empty physical index for alias and returns its name.
// A legacy bare index named like the alias is first copied into the new version, which
// then takes over the alias name.
func (m *VersionManager) ProvisionNewVersion(ctx context.Context, alias string) (string, error) {
	obs, err := m.Observe(ctx, alias)
	if err != nil {
		return "", err
	}
	if obs.State == types.AliasStateTransitioning {
		return "", &types.ErrAliasStateConflict{Alias: alias, Reason: "bound to multiple indices", Bindings: obs.Bindings}
	}

	version, err := m.NextVersion(ctx, obs)
	if err != nil {
		return "", err
	}
	physical := VersionName(alias, version)

	exists, err := m.backend.IndexExists(ctx, physical)
	if err != nil {
		return "", fmt.Errorf("check %s: %w", physical, err)
	}
	if exists {
		return "", &types.ErrProvisioningConflict{Index: physical}
	}

	// Reserve first so a failed create still burns the number
	if err := m.ledger.ReserveVersion(ctx, alias, version, physical); err != nil {
		return "", err
	}

	if err := m.backend.CreateIndex(ctx, physical, m.template); err != nil {
		return "", fmt.Errorf("create %s: %w", physical, err)
	}

	log.Info().
		Str("alias", alias).
		Str("index", physical).
		Int("version", version).
		Str("state", string(obs.State)).
		Msg("index created")

	if obs.State == types.AliasStateLegacyIndex {
		if err := m.bootstrapLegacy(ctx, alias, version, physical); err != nil {
			return "", err
		}
	}

	return physical, nil
}

// bootstrapLegacy promotes a bare index named alias into alias -> physical
func (m *VersionManager) bootstrapLegacy(ctx context.Context, alias string, version int, physical string) error {
	log.Info().Str("source", alias).Str("dest", physical).Msg("reindexing legacy index")

	result, err := m.backend.Reindex(ctx, alias, physical)
	if err != nil {
		return fmt.Errorf("reindex %s to %s: %w", alias, physical, err)
	}
	log.Info().Int64("total", result.Total).Int64("created", result.Created).Msg("legacy index copied")

	if m.atomicSwap {
		err = m.backend.UpdateAliases(ctx, []search.AliasAction{
			search.AddAlias(physical, alias),
			search.RemoveConcreteIndex(alias),
		})
		if err != nil {
			return fmt.Errorf("swap legacy %s for alias: %w", alias, err)
		}
	} else {
		log.Info().Str("index", alias).Msg("deleting legacy index")
		if err := m.backend.DeleteIndex(ctx, alias); err != nil {
			return fmt.Errorf("delete legacy %s: %w", alias, err)
		}
		if err := m.backend.PutAlias(ctx, physical, alias); err != nil {
			return fmt.Errorf("alias %s to %s: %w", alias, physical, err)
		}
	}

	if err := m.ledger.MarkCurrent(ctx, alias, version, physical); err != nil {
		return err
	}

	log.Info().Str("alias", alias).Str("index", physical).Msg("legacy index promoted to alias")
	return nil
}

// Cutover points alias at newPhysical and away from whichever index held it.
// With atomic swap both steps go in one _aliases request; otherwise the alias is
// removed and then added, restoring the old binding if the add fails.
func (m *VersionManager) Cutover(ctx context.Context, alias, newPhysical string) error {
	version, ok := ParseVersion(alias, newPhysical)
	if !ok || version < 1 {
		return fmt.Errorf("cutover target %s is not a version of %s", newPhysical, alias)
	}

	obs, err := m.Observe(ctx, alias)
	if err != nil {
		return err
	}

	switch obs.State {
	case types.AliasStateLegacyIndex:
		return &types.ErrAliasStateConflict{Alias: alias, Reason: "concrete index occupies the alias name", Bindings: obs.Bindings}
	case types.AliasStateTransitioning:
		return &types.ErrAliasStateConflict{Alias: alias, Reason: "bound to multiple indices", Bindings: obs.Bindings}
	}

	exists, err := m.backend.IndexExists(ctx, newPhysical)
	if err != nil {
		return fmt.Errorf("check %s: %w", newPhysical, err)
	}
	if !exists {
		return &types.ErrAliasStateConflict{Alias: alias, Reason: "cutover target " + newPhysical + " missing", Bindings: obs.Bindings}
	}

	if err := m.backend.Refresh(ctx, newPhysical); err != nil {
		return fmt.Errorf("refresh %s: %w", newPhysical, err)
	}

	old := obs.Current
	switch {
	case old == newPhysical:
		log.Info().Str("alias", alias).Str("index", newPhysical).Msg("alias already bound")
	case m.atomicSwap:
		actions := []search.AliasAction{search.AddAlias(newPhysical, alias)}
		if old != "" {
			actions = append([]search.AliasAction{search.RemoveAlias(old, alias)}, actions...)
		}
		if err := m.backend.UpdateAliases(ctx, actions); err != nil {
			return fmt.Errorf("swap alias %s: %w", alias, err)
		}
	default:
		if err := m.removeThenAdd(ctx, alias, old, newPhysical); err != nil {
			return err
		}
	}

	after, err := m.Observe(ctx, alias)
	if err != nil {
		return err
	}
	if after.Current != newPhysical || len(after.Bindings) != 1 {
		return &types.ErrAliasStateConflict{Alias: alias, Reason: "alias did not settle on " + newPhysical, Bindings: after.Bindings}
	}

	if err := m.ledger.MarkCurrent(ctx, alias, version, newPhysical); err != nil {
		return err
	}

	log.Info().
		Str("alias", alias).
		Str("from", old).
		Str("to", newPhysical).
		Bool("atomic", m.atomicSwap).
		Msg("alias cut over")
	return nil
}

func (m *VersionManager) removeThenAdd(ctx context.Context, alias, old, newPhysical string) error {
	if old != "" {
		log.Info().Str("alias", alias).Str("index", old).Msg("removing old alias")
		if err := m.backend.DeleteAlias(ctx, old, alias); err != nil {
			return fmt.Errorf("remove alias %s from %s: %w", alias, old, err)
		}
	}

	if err := m.backend.PutAlias(ctx, newPhysical, alias); err != nil {
		if old != "" {
			if restoreErr := m.backend.PutAlias(ctx, old, alias); restoreErr != nil {
				log.Error().Err(restoreErr).Str("alias", alias).Str("index", old).Msg("failed to restore old alias")
			}
		}
		return fmt.Errorf("add alias %s to %s: %w", alias, newPhysical, err)
	}
	return nil
}

// Retire deletes a physical index that no longer holds any alias. Bindings are
// re-read right before the delete so a stale caller cannot remove the live index.
func (m *VersionManager) Retire(ctx context.Context, oldPhysical string) error {
	_, version, ok := SplitVersion(oldPhysical)
	if !ok || version < 1 {
		return fmt.Errorf("refusing to retire %s: not a versioned index", oldPhysical)
	}

	bindings, err := m.backend.GetAliases(ctx, oldPhysical)
	if err != nil {
		return fmt.Errorf("get aliases for %s: %w", oldPhysical, err)
	}
	if aliases := bindings[oldPhysical]; len(aliases) > 0 {
		return &types.ErrAliasStateConflict{
			Alias:    strings.Join(aliases, ","),
			Reason:   oldPhysical + " still holds an alias",
			Bindings: bindings,
		}
	}
	for name := range bindings {
		if name != oldPhysical {
			// oldPhysical is itself an alias name
			return &types.ErrAliasStateConflict{Alias: oldPhysical, Reason: "name resolves to an alias", Bindings: bindings}
		}
	}

	log.Info().Str("index", oldPhysical).Msg("deleting old index")
	err = m.backend.DeleteIndex(ctx, oldPhysical)

	var backendErr *types.ErrBackend
	if errors.As(err, &backendErr) && backendErr.IsNotFound() {
		log.Info().Str("index", oldPhysical).Msg("old index already gone")
	} else if err != nil {
		return fmt.Errorf("delete %s: %w", oldPhysical, err)
	}

	return m.ledger.MarkDeleted(ctx, oldPhysical)
}
