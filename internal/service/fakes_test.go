package service

import (
	"context"
	"fmt"

	"github.com/jjenkins/recnotify/internal/model"
)

type fakeSubjectSource struct {
	options    []model.SubjectOption
	allowed    map[string]bool
	optionsErr error
	calls      int
}

func (f *fakeSubjectSource) FetchSubjectOptions(ctx context.Context) ([]model.SubjectOption, error) {
	f.calls++
	if f.optionsErr != nil {
		return nil, f.optionsErr
	}
	return f.options, nil
}

func (f *fakeSubjectSource) FetchRecordingAllowed(ctx context.Context, option model.SubjectOption) (bool, error) {
	return f.allowed[option.Value], nil
}

type fakeRecordingSource struct {
	rows  []model.RawRow
	err   error
	years []int
}

func (f *fakeRecordingSource) FetchRecordingRows(ctx context.Context, year int) ([]model.RawRow, error) {
	f.years = append(f.years, year)
	return f.rows, f.err
}

type linkCall struct {
	subjectID string
	owner     string
}

type fakeContactSource struct {
	// links maps owner name to profile URL
	links map[string]string
	// emails maps profile URL to the address shown there
	emails     map[string]string
	linkErr    error
	profileErr error

	linkCalls    []linkCall
	profileCalls []string
}

func (f *fakeContactSource) FindOwnerLink(ctx context.Context, subjectID, ownerName string) (string, error) {
	f.linkCalls = append(f.linkCalls, linkCall{subjectID: subjectID, owner: ownerName})
	if f.linkErr != nil {
		return "", f.linkErr
	}
	return f.links[ownerName], nil
}

func (f *fakeContactSource) FetchProfileEmail(ctx context.Context, profileURL string) (string, error) {
	f.profileCalls = append(f.profileCalls, profileURL)
	if f.profileErr != nil {
		return "", f.profileErr
	}
	return f.emails[profileURL], nil
}

func (f *fakeContactSource) scrapes() int {
	return len(f.linkCalls) + len(f.profileCalls)
}

type fakeResolver struct {
	emails map[string]string
	calls  []linkCall
}

func (f *fakeResolver) Resolve(ctx context.Context, ownerName, subjectID string) string {
	f.calls = append(f.calls, linkCall{subjectID: subjectID, owner: ownerName})
	return f.emails[ownerName]
}

func testSubjects(abbrs ...string) *model.SubjectRegistry {
	subjects := model.NewSubjectRegistry()
	for i, abbr := range abbrs {
		subjects.Set(abbr, model.SubjectRecord{
			Abbreviation:     abbr,
			FullName:         abbr + " Course",
			ID:               fmt.Sprintf("%d", 1000+i),
			RecordingAllowed: true,
		})
	}
	return subjects
}
