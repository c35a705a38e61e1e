package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NewUsersTotal counts successful account creations.
	NewUsersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "new_users_total",
		Help: "Total number of new user registrations",
	})

	// UsersDeletedTotal counts soft deletions of accounts.
	UsersDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "users_deleted_total",
		Help: "Total number of user deletions",
	})

	// PasswordResetRequestsTotal counts password reset code issuances.
	PasswordResetRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "password_reset_requests_total",
		Help: "Total number of password reset requests",
	})

	// LoginAttemptsTotal counts login attempts labelled success or failed.
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "login_attempts_total",
		Help: "Total number of login attempts",
	}, []string{"status"})

	// FollowRequestsTotal tracks pending follow requests.
	FollowRequestsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "follow_requests_total",
		Help: "Total number of pending follow requests",
	})

	// FollowsTotal tracks follow relationships.
	FollowsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "follows_total",
		Help: "Total number of follow relationships",
	})

	// BlocksTotal tracks active blocks.
	BlocksTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blocks_total",
		Help: "Total number of active blocks",
	})

	// APIRequestsByVersion counts requests per resolved API version tag.
	APIRequestsByVersion = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "api_requests_by_version_total",
		Help: "Total API requests by resolved version tag",
	}, []string{"version"})
)
