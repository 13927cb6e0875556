package sync

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/nhle/fetchheaders/internal/model"
	"github.com/nhle/fetchheaders/internal/session"
)

// DeletionResult reports the outcome of deleting one account's messages.
type DeletionResult struct {
	Account string
	Count   int
	Err     error
}

// DeleteMarked copies uids to the account's Trash folder and, when hard
// delete is enabled, flags and expunges them from the polled folder.
// There is no rollback: a failure after the copy leaves the copies in Trash.
func DeleteMarked(
	ctx context.Context,
	acct model.AccountConfig,
	uids []string,
	open session.Factory,
	log *zap.Logger,
) DeletionResult {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("account", acct.Name))
	res := DeletionResult{Account: acct.Name, Count: len(uids)}

	if len(uids) == 0 {
		return res
	}

	if acct.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, acct.Timeout)
		defer cancel()
	}

	failed := func(err error) DeletionResult {
		log.Error("deletion failed", zap.Int("count", len(uids)), zap.Error(err))
		res.Err = err
		return res
	}

	sess := open()
	if err := sess.Connect(ctx, acct.Host, acct.Port, acct.Security); err != nil {
		return failed(err)
	}
	defer func() {
		if err := sess.Logout(); err != nil {
			log.Warn("logout failed", zap.Error(err))
		}
	}()

	if err := sess.Login(acct.Username, acct.Password); err != nil {
		return failed(err)
	}
	if err := sess.SelectFolder(acct.Folder, false); err != nil {
		return failed(err)
	}

	if err := sess.Copy(uids, acct.Trash); err != nil {
		return failed(err)
	}
	log.Debug("copied to trash", zap.String("trash", acct.Trash), zap.Strings("uids", uids))

	if acct.HardDelete {
		if err := sess.MarkDeleted(uids); err != nil {
			return failed(err)
		}
		if err := sess.Expunge(); err != nil {
			return failed(err)
		}
		log.Debug("expunged", zap.Int("count", len(uids)))
	}

	log.Info("deleted", zap.Int("count", len(uids)), zap.Bool("hard", acct.HardDelete))
	return res
}

// DeleteAll runs one deletion job per account name present in groups and
// returns the results in configuration order. Accounts with no entry in
// groups are not contacted.
func DeleteAll(
	ctx context.Context,
	accounts []model.AccountConfig,
	groups map[string][]string,
	poolSize int,
	open session.Factory,
	log *zap.Logger,
) []DeletionResult {
	var jobs []Job[DeletionResult]
	scheduled := make(map[string]bool, len(groups))
	for _, acct := range accounts {
		uids, ok := groups[acct.Name]
		if !ok || len(uids) == 0 || scheduled[acct.Name] {
			continue
		}
		scheduled[acct.Name] = true
		jobs = append(jobs, func() DeletionResult {
			return DeleteMarked(ctx, acct, uids, open, log)
		})
	}

	results := Run(jobs, poolSize)

	order := make(map[string]int, len(accounts))
	for i, a := range accounts {
		if _, ok := order[a.Name]; !ok {
			order[a.Name] = i
		}
	}
	slices.SortFunc(results, func(a, b DeletionResult) int {
		return order[a.Account] - order[b.Account]
	})
	return results
}
