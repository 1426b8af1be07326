package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BudgetPolicy carries the tunable thresholds for budget performance
// classification.
type BudgetPolicy struct {
	// NearLimitRatio is the actual/planned ratio at which a budget is
	// flagged as approaching its limit.
	NearLimitRatio float64 `mapstructure:"nearLimitRatio"`
}

func DefaultBudgetPolicy() BudgetPolicy {
	return BudgetPolicy{
		NearLimitRatio: 0.80,
	}
}

// BudgetPolicyHolder exposes the current policy and hot-reloads it when the
// config file changes. Invalid reloads are ignored.
type BudgetPolicyHolder struct {
	current atomic.Value // holds BudgetPolicy
}

func NewBudgetPolicyHolder() (*BudgetPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("budget")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/kontera/config")
	v.AddConfigPath("/etc/kontera")
	v.AddConfigPath(".")

	v.SetEnvPrefix("KONTERA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fromFile := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fromFile = false
		defaults := DefaultBudgetPolicy()
		v.SetDefault("budget.nearLimitRatio", defaults.NearLimitRatio)
	}

	var policy BudgetPolicy
	if err := v.UnmarshalKey("budget", &policy); err != nil {
		return nil, err
	}
	if policy.NearLimitRatio == 0 {
		policy.NearLimitRatio = DefaultBudgetPolicy().NearLimitRatio
	}
	if err := validateBudgetPolicy(policy); err != nil {
		return nil, err
	}

	holder := &BudgetPolicyHolder{}
	holder.current.Store(policy)

	if fromFile {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated BudgetPolicy
			if err := v.UnmarshalKey("budget", &updated); err != nil {
				log.Printf("[budget-policy] reload failed: %v", err)
				return
			}
			if err := validateBudgetPolicy(updated); err != nil {
				log.Printf("[budget-policy] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[budget-policy] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

// StaticBudgetPolicyHolder wraps a fixed policy, without file watching.
func StaticBudgetPolicyHolder(policy BudgetPolicy) *BudgetPolicyHolder {
	holder := &BudgetPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func (h *BudgetPolicyHolder) Get() BudgetPolicy {
	return h.current.Load().(BudgetPolicy)
}

func validateBudgetPolicy(policy BudgetPolicy) error {
	if policy.NearLimitRatio <= 0 || policy.NearLimitRatio > 1 {
		return errors.New("budget.nearLimitRatio must be in (0, 1]")
	}
	return nil
}
