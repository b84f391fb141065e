package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/jjenkins/recnotify/internal/model"
)

// ContactResolverOptions configures resolution policy
type ContactResolverOptions struct {
	// Overrides maps exact owner names to fixed addresses for owners who
	// are not linked from the subject page
	Overrides map[string]string
	// CacheNegative records "" for owners whose lookup finished without an
	// address, so later runs do not scrape them again. When false a cached
	// "" is treated as a miss.
	CacheNegative bool
	Metrics       *Metrics
}

// ContactResolver resolves owner emails through the contact directory, the
// subject and profile pages, and the override table, in that order.
//
// The directory is mutated in place; the caller persists it.
type ContactResolver struct {
	source    ContactSource
	directory *model.ContactDirectory
	opts      ContactResolverOptions
	logger    *zap.Logger
}

// NewContactResolver creates a resolver writing into directory
func NewContactResolver(source ContactSource, directory *model.ContactDirectory, opts ContactResolverOptions, logger *zap.Logger) *ContactResolver {
	if directory == nil {
		directory = model.NewContactDirectory()
	}
	return &ContactResolver{
		source:    source,
		directory: directory,
		opts:      opts,
		logger:    logger.Named("contacts"),
	}
}

// Directory returns the directory the resolver reads and writes
func (r *ContactResolver) Directory() *model.ContactDirectory {
	return r.directory
}

// Resolve returns the email of ownerName, or "" when it cannot be found.
// It never fails: scrape errors are logged and yield "" without being
// cached, so a transient outage is retried on the next run.
func (r *ContactResolver) Resolve(ctx context.Context, ownerName, subjectID string) string {
	if email, ok := r.directory.Get(ownerName); ok && (email != "" || r.opts.CacheNegative) {
		r.observe(ownerName, model.ContactSourceCache, email)
		return email
	}

	log := r.logger.With(zap.String("owner", ownerName), zap.String("subject_id", subjectID))

	link, err := r.source.FindOwnerLink(ctx, subjectID, ownerName)
	if err != nil {
		log.Warn("Subject page lookup failed", zap.Error(err))
		r.observe(ownerName, model.ContactSourceNone, "")
		return ""
	}

	if link != "" {
		email, err := r.source.FetchProfileEmail(ctx, link)
		if err != nil {
			log.Warn("Profile lookup failed", zap.String("profile", link), zap.Error(err))
			r.observe(ownerName, model.ContactSourceNone, "")
			return ""
		}
		if email == "" {
			log.Warn("Profile has no contact email", zap.String("profile", link))
			r.store(ownerName, "")
			r.observe(ownerName, model.ContactSourceNone, "")
			return ""
		}
		r.store(ownerName, email)
		r.observe(ownerName, model.ContactSourceProfile, email)
		return email
	}

	if email, ok := r.opts.Overrides[ownerName]; ok {
		r.store(ownerName, email)
		r.observe(ownerName, model.ContactSourceOverride, email)
		return email
	}

	log.Warn("Owner not linked from subject page and has no override")
	r.store(ownerName, "")
	r.observe(ownerName, model.ContactSourceNone, "")
	return ""
}

func (r *ContactResolver) store(ownerName, email string) {
	if email == "" && !r.opts.CacheNegative {
		return
	}
	r.directory.Set(ownerName, email)
}

func (r *ContactResolver) observe(ownerName string, source model.ContactSource, email string) {
	r.opts.Metrics.ContactResolved(source)
	r.logger.Debug("Contact resolved",
		zap.String("owner", ownerName),
		zap.String("source", string(source)),
		zap.Bool("found", email != ""),
	)
}
