package domain

import (
	"fmt"
	"sort"
	"strings"
)

// IntegrityIssue describes stored data that a previous bug left inconsistent.
// Issues are reported, never patched automatically.
type IntegrityIssue struct {
	Kind     string
	Account  string
	AssetIDs []string
}

const (
	IssueDuplicateAdjustment = "duplicate_adjustment"
	IssueOrphanHistory       = "orphan_history"
)

func (i IntegrityIssue) String() string {
	switch i.Kind {
	case IssueDuplicateAdjustment:
		return fmt.Sprintf("account %q has %d balance adjustment entries: %s",
			i.Account, len(i.AssetIDs), strings.Join(i.AssetIDs, ", "))
	case IssueOrphanHistory:
		return fmt.Sprintf("history rows reference missing assets: %s", strings.Join(i.AssetIDs, ", "))
	default:
		return i.Kind
	}
}

// FindDuplicateAdjustments reports every account carrying more than one balance adjustment entry
func FindDuplicateAdjustments(assets []*Asset) []IntegrityIssue {
	byAccount := make(map[string][]string)
	for _, a := range assets {
		if a.IsBalanceAdjustment() {
			byAccount[a.AccountName()] = append(byAccount[a.AccountName()], a.ID)
		}
	}

	var issues []IntegrityIssue
	for account, ids := range byAccount {
		if len(ids) < 2 {
			continue
		}
		sort.Strings(ids)
		issues = append(issues, IntegrityIssue{Kind: IssueDuplicateAdjustment, Account: account, AssetIDs: ids})
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].Account < issues[j].Account })
	return issues
}

// AdjustmentFor returns the single balance adjustment entry of an account, or nil.
// More than one is an integrity violation.
func AdjustmentFor(assets []*Asset, account string) (*Asset, error) {
	var found *Asset
	for _, a := range assets {
		if !a.IsBalanceAdjustment() || a.AccountName() != account {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: account %q has more than one balance adjustment entry",
				ErrIntegrityViolation, account)
		}
		found = a
	}
	return found, nil
}
