package notification

import (
	"context"
	"strings"

	"CampusNotify/internal/apperr"
	"CampusNotify/internal/auth"
	"CampusNotify/internal/directory"

	"go.uber.org/zap"
)

// Resolver turns group references and raw addresses into the final
// recipient set, enforcing what the sender may address.
type Resolver struct {
	groups    GroupLookup
	perms     TeacherPermissions
	directory Directory
	logger    *zap.Logger
}

func NewResolver(groups GroupLookup, perms TeacherPermissions, dir Directory, logger *zap.Logger) *Resolver {
	return &Resolver{groups: groups, perms: perms, directory: dir, logger: logger}
}

// ResolveInput is what the sender asked for.
type ResolveInput struct {
	Sender     auth.Identity
	TenantID   string
	Year       string
	GroupIDs   []string
	Recipients []string
}

// Resolution is the resolved audience.
type Resolution struct {
	Recipients []string
	GroupIDs   []string
	Broadcast  bool
}

// Resolve expands groups, normalizes addresses and applies the sender's
// addressing policy.
func (r *Resolver) Resolve(ctx context.Context, in ResolveInput) (Resolution, error) {
	groupIDs := cleanGroupIDs(in.GroupIDs)
	direct := normalizeAddresses(in.Recipients)

	if in.Sender.Role == auth.RoleTeacher {
		if err := r.checkTeacher(ctx, in.Sender, in.TenantID, groupIDs, direct); err != nil {
			return Resolution{}, err
		}
	}
	if len(groupIDs) == 0 && len(direct) == 0 {
		return Resolution{}, apperr.Invalid("no recipients")
	}

	all := direct
	broadcast := false
	if len(groupIDs) > 0 {
		systemIDs := map[string]bool{
			directory.SystemID(directory.SystemAllStudents, in.Year):  true,
			directory.SystemID(directory.SystemAllCommunity, in.Year): true,
		}
		expanded := append([]string(nil), direct...)
		for _, gid := range groupIDs {
			g, err := r.groups.FindByID(ctx, gid, in.TenantID)
			if err != nil {
				r.logger.Warn("skipping unreadable group", zap.String("group", gid), zap.Error(err))
				continue
			}
			if g == nil {
				r.logger.Debug("skipping unknown group", zap.String("group", gid))
				continue
			}
			expanded = append(expanded, g.MemberIDs...)
			if g.IsBroadcast() || (g.System && systemIDs[g.ID]) {
				broadcast = true
			}
		}
		all = normalizeAddresses(expanded)
	}
	if len(all) == 0 {
		return Resolution{}, apperr.Invalid("no valid recipients")
	}
	if len(all) > BroadcastThreshold {
		broadcast = true
	}
	return Resolution{Recipients: all, GroupIDs: groupIDs, Broadcast: broadcast}, nil
}

func (r *Resolver) checkTeacher(ctx context.Context, sender auth.Identity, tenantID string, groupIDs, direct []string) error {
	if len(groupIDs) > 0 {
		allowed, err := r.perms.AllowedGroups(ctx, tenantID, sender.Email)
		if err != nil {
			return apperr.Wrap(apperr.Internal, err, "could not load group permissions")
		}
		if len(allowed) == 0 {
			return apperr.Forbid("you have no permission to send to groups")
		}
		permitted := make(map[string]bool, len(allowed))
		for _, g := range allowed {
			permitted[strings.TrimSpace(g)] = true
		}
		for _, g := range groupIDs {
			if !permitted[g] {
				return apperr.Forbid("you cannot send to groups outside your permissions")
			}
		}
		return nil
	}

	if len(direct) == 0 {
		return apperr.Invalid("no recipients")
	}
	roles, err := r.directory.RolesByEmail(ctx, direct)
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "could not verify recipients")
	}
	for _, email := range direct {
		role, ok := roles[email]
		if !ok || !role.CanReceiveDirectFromTeacher() {
			return apperr.Forbid("teachers can only message platform staff directly")
		}
	}
	return nil
}

func cleanGroupIDs(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, g := range in {
		g = strings.TrimSpace(g)
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	return out
}
