package perm

import (
	"context"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/arborhq/arbor/pkg/observability"
)

// DefaultCacheSize bounds the decision cache when no option overrides it
const DefaultCacheSize = 4096

// cacheKey identifies one cached decision. Resource is part of the key so a
// person-scoped check never shadows a tree-scoped one.
type cacheKey struct {
	userID   string
	treeID   string
	perm     Permission
	resource string
}

// DecisionHook observes every resolved (non-cached) decision. The audit
// trail hangs off this.
type DecisionHook func(ctx context.Context, pc Context, p Permission, res Result)

// Service resolves permission checks through a priority-ordered strategy
// chain and memoizes decisions in a bounded LRU cache.
//
// Aggregation rules: an explicit veto from any strategy ends the check as a
// deny. A grant keeps the chain running, but only through strategies that
// declare themselves restrictors for the permission; everything else is
// skipped. A chain that produces neither grant nor veto resolves to deny.
type Service struct {
	dir        Directory
	strategies []Strategy
	cache      *lru.Cache[cacheKey, Result]
	logger     *observability.Logger
	metrics    *observability.Metrics
	hook       DecisionHook
}

// Option configures a Service
type Option func(*serviceOptions)

type serviceOptions struct {
	cacheSize  int
	strategies []Strategy
	logger     *observability.Logger
	metrics    *observability.Metrics
	hook       DecisionHook
}

// WithCacheSize overrides the decision cache capacity
func WithCacheSize(n int) Option {
	return func(o *serviceOptions) { o.cacheSize = n }
}

// WithStrategies replaces the default strategy chain
func WithStrategies(strategies ...Strategy) Option {
	return func(o *serviceOptions) { o.strategies = strategies }
}

// WithLogger attaches a logger for per-decision debug output
func WithLogger(l *observability.Logger) Option {
	return func(o *serviceOptions) { o.logger = l }
}

// WithMetrics attaches check and cache counters
func WithMetrics(m *observability.Metrics) Option {
	return func(o *serviceOptions) { o.metrics = m }
}

// WithDecisionHook attaches a hook invoked for every freshly resolved
// decision. Cache hits do not re-fire the hook.
func WithDecisionHook(h DecisionHook) Option {
	return func(o *serviceOptions) { o.hook = h }
}

// NewService builds a Service over the given directory. Without options it
// runs the owner-only, attribute-based and role-based strategies in that
// order.
func NewService(dir Directory, opts ...Option) (*Service, error) {
	o := serviceOptions{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}

	strategies := o.strategies
	if strategies == nil {
		strategies = []Strategy{
			NewOwnerOnlyStrategy(dir),
			NewAttributeBasedStrategy(dir),
			NewRoleBasedStrategy(dir),
		}
	}
	sort.SliceStable(strategies, func(i, j int) bool {
		return strategies[i].Priority() > strategies[j].Priority()
	})

	cache, err := lru.New[cacheKey, Result](o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating decision cache: %w", err)
	}

	return &Service{
		dir:        dir,
		strategies: strategies,
		cache:      cache,
		logger:     o.logger,
		metrics:    o.metrics,
		hook:       o.hook,
	}, nil
}

// CanAccess checks a tree-scoped permission
func (s *Service) CanAccess(ctx context.Context, userID, treeID string, p Permission) (bool, error) {
	res, err := s.Check(ctx, p, Context{UserID: userID, TreeID: treeID, ResourceType: ResourceTree, ResourceID: treeID})
	if err != nil {
		return false, err
	}
	return res.Allowed && !res.Denied, nil
}

// CanAccessResource checks a permission scoped to a specific resource
func (s *Service) CanAccessResource(ctx context.Context, userID, treeID string, p Permission, rt ResourceType, resourceID string) (bool, error) {
	res, err := s.Check(ctx, p, Context{UserID: userID, TreeID: treeID, ResourceType: rt, ResourceID: resourceID})
	if err != nil {
		return false, err
	}
	return res.Allowed && !res.Denied, nil
}

// Check resolves a permission check, consulting the cache first. The full
// Result is returned so callers can surface the reason.
func (s *Service) Check(ctx context.Context, p Permission, pc Context) (Result, error) {
	if !p.Valid() {
		return Deny(fmt.Sprintf("unknown permission %q", p)), nil
	}

	key := cacheKey{userID: pc.UserID, treeID: pc.TreeID, perm: p, resource: pc.ResourceID}
	if res, ok := s.cache.Get(key); ok {
		if s.metrics != nil {
			s.metrics.PermissionCacheHits.Inc()
		}
		return res, nil
	}
	if s.metrics != nil {
		s.metrics.PermissionCacheMisses.Inc()
	}

	res, err := s.resolve(ctx, p, pc)
	if err != nil {
		return Result{}, err
	}

	s.cache.Add(key, res)
	s.observe(ctx, p, pc, res)
	return res, nil
}

// resolve runs the strategy chain for one permission
func (s *Service) resolve(ctx context.Context, p Permission, pc Context) (Result, error) {
	var granted Result
	haveGrant := false

	for _, strat := range s.strategies {
		if haveGrant {
			r, ok := strat.(Restrictor)
			if !ok || !r.Restricts(p) {
				continue
			}
		}

		res, err := strat.Evaluate(ctx, p, pc)
		if err != nil {
			return Result{}, fmt.Errorf("strategy %s: %w", strat.Name(), err)
		}
		if res.Denied {
			return res, nil
		}
		if res.GrantedBy != "" && !haveGrant {
			granted = res
			haveGrant = true
		}
	}

	if haveGrant {
		return granted, nil
	}
	// Every strategy was neutral. Absence of a grant is a deny.
	return Deny(fmt.Sprintf("no strategy grants %s", p)), nil
}

func (s *Service) observe(ctx context.Context, p Permission, pc Context, res Result) {
	decision := "allow"
	if res.Denied || !res.Allowed {
		decision = "deny"
	}
	if s.metrics != nil {
		s.metrics.PermissionChecksTotal.WithLabelValues(string(p), decision).Inc()
	}
	if s.logger != nil {
		s.logger.WithFields(map[string]interface{}{
			"user_id":    pc.UserID,
			"tree_id":    pc.TreeID,
			"permission": string(p),
			"decision":   decision,
			"reason":     res.Reason,
			"granted_by": res.GrantedBy,
		}).Debug("permission check resolved")
	}
	if s.hook != nil {
		s.hook(ctx, pc, p, res)
	}
}

// GetPermissions returns the caller's effective permission set for a tree.
// Candidates come from each strategy's Grants enumeration and are then
// confirmed through the full chain so attribute vetoes still apply.
func (s *Service) GetPermissions(ctx context.Context, userID, treeID string) ([]Permission, error) {
	pc := Context{UserID: userID, TreeID: treeID, ResourceType: ResourceTree, ResourceID: treeID}

	candidates := make(map[Permission]bool)
	for _, strat := range s.strategies {
		perms, err := strat.Grants(ctx, pc)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", strat.Name(), err)
		}
		for _, p := range perms {
			candidates[p] = true
		}
	}

	var effective []Permission
	for _, p := range AllPermissions() {
		if !candidates[p] {
			continue
		}
		res, err := s.Check(ctx, p, pc)
		if err != nil {
			return nil, err
		}
		if res.Allowed && !res.Denied {
			effective = append(effective, p)
		}
	}
	return effective, nil
}

// roleRank orders roles for minimum-role comparisons
var roleRank = map[Role]int{
	RoleOwner:  5,
	RoleAdmin:  4,
	RoleEditor: 3,
	RoleViewer: 2,
	RoleGuest:  1,
	RoleNone:   0,
}

// UserRole resolves the caller's role for a tree
func (s *Service) UserRole(ctx context.Context, userID, treeID string) (Role, error) {
	t, err := s.dir.GetTree(ctx, treeID)
	if err != nil {
		return RoleNone, err
	}
	return resolveRole(t, userID), nil
}

// HasMinimumRole reports whether the caller's role is at least min
func (s *Service) HasMinimumRole(ctx context.Context, userID, treeID string, min Role) (bool, error) {
	role, err := s.UserRole(ctx, userID, treeID)
	if err != nil {
		return false, err
	}
	return roleRank[role] >= roleRank[min], nil
}

// IsOwner reports whether the caller owns the tree
func (s *Service) IsOwner(ctx context.Context, userID, treeID string) (bool, error) {
	role, err := s.UserRole(ctx, userID, treeID)
	if err != nil {
		return false, err
	}
	return role == RoleOwner, nil
}

// CanDeleteTree is a convenience wrapper for the owner-only tree deletion check
func (s *Service) CanDeleteTree(ctx context.Context, userID, treeID string) (bool, error) {
	return s.CanAccess(ctx, userID, treeID, PermDeleteTree)
}

// CanManageCollaborators is a convenience wrapper for collaborator management
func (s *Service) CanManageCollaborators(ctx context.Context, userID, treeID string) (bool, error) {
	return s.CanAccess(ctx, userID, treeID, PermManageCollaborators)
}

// CanExportTree is a convenience wrapper for the export check
func (s *Service) CanExportTree(ctx context.Context, userID, treeID string) (bool, error) {
	return s.CanAccess(ctx, userID, treeID, PermExportTree)
}

// InvalidateAll drops every cached decision
func (s *Service) InvalidateAll() {
	s.cache.Purge()
}

// InvalidateUser drops cached decisions for one user across all trees
func (s *Service) InvalidateUser(userID string) {
	for _, key := range s.cache.Keys() {
		if key.userID == userID {
			s.cache.Remove(key)
		}
	}
}

// InvalidateTree drops cached decisions for one tree across all users
func (s *Service) InvalidateTree(treeID string) {
	for _, key := range s.cache.Keys() {
		if key.treeID == treeID {
			s.cache.Remove(key)
		}
	}
}

// CacheLen reports the number of cached decisions, for stats endpoints
func (s *Service) CacheLen() int {
	return s.cache.Len()
}
