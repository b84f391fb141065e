package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jjenkins/recnotify/internal/config"
	"github.com/jjenkins/recnotify/internal/model"
	"github.com/jjenkins/recnotify/internal/portal"
)

const (
	casLoginSelector    = "#login"
	casPasswordSelector = "#password"
	casSubmitSelector   = `input[name="doLogin"]`

	subjectSelectSelector = "select"
	subjectSubmitSelector = `input[value="Zvolit"]`
	subjectInfoSelector   = `td[width="100%"]`
	recordingAllowedText  = "záznam: povolen"

	recordingsTableSelector = "table:nth-child(1) table:nth-child(6)"
	recordingRowSelector    = `tr[valign="top"]`

	profileEmailLabel       = "E-mail"
	profileContactSecondary = ".b-profile__contact span:nth-of-type(2)"
	profileContactPrimary   = ".b-profile__contact span"
)

// SubjectSource enumerates subjects and their recording permission
type SubjectSource interface {
	FetchSubjectOptions(ctx context.Context) ([]model.SubjectOption, error)
	FetchRecordingAllowed(ctx context.Context, option model.SubjectOption) (bool, error)
}

// RecordingSource lists the recordings made in one calendar year
type RecordingSource interface {
	FetchRecordingRows(ctx context.Context, year int) ([]model.RawRow, error)
}

// ContactSource finds owner profile links and reads emails from profiles
type ContactSource interface {
	// FindOwnerLink returns "" when the subject page has no link for ownerName
	FindOwnerLink(ctx context.Context, subjectID, ownerName string) (string, error)
	// FetchProfileEmail returns "" when none of the known contact fields is present
	FetchProfileEmail(ctx context.Context, profileURL string) (string, error)
}

// PortalClient scrapes the recordings portal and subject pages through one
// browsing session. Listing and contact lookups each get their own client
// because navigating one page discards the form state of the other.
type PortalClient struct {
	agent  portal.Agent
	cfg    config.PortalConfig
	logger *zap.Logger
}

// NewPortalClient creates a client driving agent
func NewPortalClient(agent portal.Agent, cfg config.PortalConfig, logger *zap.Logger) *PortalClient {
	return &PortalClient{
		agent:  agent,
		cfg:    cfg,
		logger: logger.Named("portal"),
	}
}

// Login authenticates against CAS and verifies the account can open the portal
func (c *PortalClient) Login(ctx context.Context) error {
	if err := c.agent.Navigate(ctx, c.cfg.CASURL); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}
	if err := c.agent.Fill(casLoginSelector, c.cfg.User); err != nil {
		return fmt.Errorf("failed to fill login: %w", err)
	}
	if err := c.agent.Fill(casPasswordSelector, c.cfg.Password); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}
	if err := c.agent.Click(ctx, casSubmitSelector); err != nil {
		return fmt.Errorf("failed to submit login: %w", err)
	}

	if err := c.CheckAccess(ctx); err != nil {
		return fmt.Errorf("could not access video server: %w", err)
	}
	c.logger.Info("Logged in to portal", zap.String("user", c.cfg.User))
	return nil
}

// CheckAccess opens the portal; being shown a password prompt means no access
func (c *PortalClient) CheckAccess(ctx context.Context) error {
	if err := c.agent.Navigate(ctx, c.cfg.RecordingsURL); err != nil {
		return err
	}
	_, err := c.agent.Find(casPasswordSelector)
	if err == nil {
		return ErrNoAccess
	}
	if !errors.Is(err, portal.ErrNotFound) {
		return err
	}
	return nil
}

// FetchSubjectOptions reads every option of the subject selector
func (c *PortalClient) FetchSubjectOptions(ctx context.Context) ([]model.SubjectOption, error) {
	if err := c.agent.Navigate(ctx, c.cfg.AllowedSubjectsURL); err != nil {
		return nil, fmt.Errorf("failed to open subject list: %w", err)
	}
	if _, err := c.agent.Find(subjectSelectSelector); err != nil {
		return nil, fmt.Errorf("%w: subject selector: %v", ErrUnexpectedPage, err)
	}

	elements, err := c.agent.FindAll(subjectSelectSelector + " option")
	if err != nil {
		return nil, err
	}

	options := make([]model.SubjectOption, 0, len(elements))
	for _, el := range elements {
		options = append(options, model.SubjectOption{
			Label: el.Text(),
			Value: el.Attr("value"),
		})
	}
	return options, nil
}

// FetchRecordingAllowed submits the subject selector for option and reads the
// recording permission from the resulting page
func (c *PortalClient) FetchRecordingAllowed(ctx context.Context, option model.SubjectOption) (bool, error) {
	if err := c.agent.SelectOption(subjectSelectSelector, option.Value); err != nil {
		return false, fmt.Errorf("failed to select subject %s: %w", option.Label, err)
	}
	if err := c.agent.Click(ctx, subjectSubmitSelector); err != nil {
		return false, fmt.Errorf("failed to submit subject %s: %w", option.Label, err)
	}

	info, err := c.agent.Find(subjectInfoSelector)
	if err != nil {
		return false, fmt.Errorf("%w: subject info for %s: %v", ErrUnexpectedPage, option.Label, err)
	}
	return strings.Contains(info.Text(), recordingAllowedText), nil
}

// FetchRecordingRows reads the recordings listing for year
func (c *PortalClient) FetchRecordingRows(ctx context.Context, year int) ([]model.RawRow, error) {
	listURL := strings.ReplaceAll(c.cfg.RecordingsInfoURL, "{year}", strconv.Itoa(year))
	if err := c.agent.Navigate(ctx, listURL); err != nil {
		return nil, fmt.Errorf("failed to open recordings listing: %w", err)
	}

	table, err := c.agent.Find(recordingsTableSelector)
	if err != nil {
		return nil, fmt.Errorf("%w: recordings table: %v", ErrUnexpectedPage, err)
	}

	trs := table.FindAll(recordingRowSelector)
	rows := make([]model.RawRow, 0, len(trs))
	for idx, tr := range trs {
		cells := tr.FindAll("td")
		if len(cells) != 4 {
			return nil, fmt.Errorf("%w: recordings row %d has %d cells, want 4", ErrUnexpectedPage, idx+1, len(cells))
		}
		rows = append(rows, model.RawRow{
			DateTime:    cells[0].Text(),
			SubjectName: cells[1].Text(),
			Permission:  cells[2].Text(),
			OwnerName:   cells[3].Text(),
		})
	}

	c.logger.Debug("Read recordings listing", zap.Int("year", year), zap.Int("rows", len(rows)))
	return rows, nil
}

// FindOwnerLink opens the subject page and looks for a link labelled exactly ownerName
func (c *PortalClient) FindOwnerLink(ctx context.Context, subjectID, ownerName string) (string, error) {
	cardURL := strings.ReplaceAll(c.cfg.SubjectCardURL, "{subject_id}", subjectID)
	if err := c.agent.Navigate(ctx, cardURL); err != nil {
		return "", fmt.Errorf("failed to open subject page %s: %w", subjectID, err)
	}

	links, err := c.agent.FindAll("a")
	if err != nil {
		return "", err
	}
	for _, link := range links {
		if link.Text() == ownerName {
			return link.Attr("href"), nil
		}
	}
	return "", nil
}

// FetchProfileEmail opens a profile page and probes the known contact fields in order
func (c *PortalClient) FetchProfileEmail(ctx context.Context, profileURL string) (string, error) {
	if err := c.agent.Navigate(ctx, profileURL); err != nil {
		return "", fmt.Errorf("failed to open profile %s: %w", profileURL, err)
	}

	headers, err := c.agent.FindAll("th")
	if err != nil {
		return "", err
	}
	for _, th := range headers {
		if th.Text() != profileEmailLabel {
			continue
		}
		for _, td := range th.NextSiblings("td") {
			if links := td.FindAll("a"); len(links) > 0 && links[0].Text() != "" {
				return links[0].Text(), nil
			}
		}
	}

	// profiles of people outside the faculty have no labelled table
	for _, selector := range []string{profileContactSecondary, profileContactPrimary} {
		el, err := c.agent.Find(selector)
		if errors.Is(err, portal.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		if text := el.Text(); text != "" {
			return text, nil
		}
	}
	return "", nil
}
