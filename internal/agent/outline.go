// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/store"
	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

const claimsPerSection = 3

var (
	// renameTarget captures the new title in "rename section 2 to X".
	renameTarget = regexp.MustCompile(`(?i)\bto\s+["']?(.+?)["']?\s*$`)

	// sectionPrepositions are dropped from the front of a section name.
	sectionPrepositions = regexp.MustCompile(`(?i)^(?:on|about|for|called|named|titled)\s+`)
)

func (a *Agent) handleGenerateOutline(ctx context.Context, t *turn) (string, error) {
	if t.session == nil {
		return "", ErrNoSession
	}
	existing, err := a.store.ListOutline(ctx, t.projectID)
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		return "", notice(`This project already has an outline with %d sections. Use "add a section on ..." or "rename section N to ..." to change it.`, len(existing))
	}
	papers, err := a.store.ListSources(ctx, t.projectID)
	if err != nil {
		return "", err
	}
	if len(papers) == 0 {
		return "", notice("Your library is empty, so there is nothing to outline yet. Search for papers first.")
	}

	topic := t.session.Topic
	records := make([]types.PaperRecord, len(papers))
	for i, p := range papers {
		records[i] = p.PaperRecord
	}

	var sections, claims int
	addSection := func(title string, kind types.SectionType, texts []string, support [][]string) error {
		sec, err := a.store.CreateSection(ctx, t.projectID, title, kind)
		if err != nil {
			return err
		}
		sections++
		for i, text := range texts {
			if _, err := a.store.CreateClaim(ctx, sec.ID, text, support[i]); err != nil {
				return err
			}
			claims++
		}
		return nil
	}

	if err := addSection("Introduction", types.SectionIntroduction,
		[]string{"Overview of " + topic}, [][]string{nil}); err != nil {
		return "", err
	}
	var titles []string
	for _, sub := range Subtopics(records, topic, a.cfg.MaxSections-2) {
		var texts []string
		var support [][]string
		for _, p := range papers {
			if len(texts) == claimsPerSection {
				break
			}
			if strings.Contains(strings.ToLower(p.Title), sub) {
				texts = append(texts, fmt.Sprintf("Findings from %q (#%d)", p.Title, p.Index))
				support = append(support, []string{p.ID})
			}
		}
		title := capitalize(sub)
		if err := addSection(title, types.SectionHeading, texts, support); err != nil {
			return "", err
		}
		titles = append(titles, title)
	}
	if err := addSection("Conclusion", types.SectionConclusion,
		[]string{"Summary and future directions for " + topic}, [][]string{nil}); err != nil {
		return "", err
	}

	if err := a.store.UpdateSessionStatus(ctx, t.session.ID, types.SessionDrafting); err != nil {
		return "", err
	}
	t.session.Status = types.SessionDrafting
	if _, err := a.store.LogExploration(ctx, types.ExplorationLog{
		SessionID:   t.session.ID,
		ActionType:  types.IntentGenerateOutline,
		Trigger:     "user_request",
		Description: "Generated outline for " + topic,
		Details:     map[string]any{"sections": sections, "claims": claims},
	}); err != nil {
		return "", err
	}
	t.resp.SectionsCreated = sections
	t.resp.ClaimsCreated = claims

	var b strings.Builder
	fmt.Fprintf(&b, "I drafted an outline for %q with %d sections and %d claims:\n\n1. Introduction", topic, sections, claims)
	for i, title := range titles {
		fmt.Fprintf(&b, "\n%d. %s", i+2, title)
	}
	fmt.Fprintf(&b, "\n%d. Conclusion", sections)
	b.WriteString("\n\nThe introduction and conclusion claims still need sources. Ask \"which claims need more sources?\" to see the gaps.")
	return b.String(), nil
}

func (a *Agent) handleAddSection(ctx context.Context, t *turn) (string, error) {
	title := ""
	if ref := t.intent.SectionText(); ref != "" && !isNumber(ref) {
		title = sectionPrepositions.ReplaceAllString(ref, "")
	}
	if title == "" {
		title = sectionPrepositions.ReplaceAllString(t.intent.QueryText(), "")
	}
	title = capitalize(strings.TrimSpace(title))
	if title == "" {
		return "", notice(`What should the new section be called? Try "add a section on methodology".`)
	}

	sec, err := a.store.CreateSection(ctx, t.projectID, title, types.SectionHeading)
	if err != nil {
		return "", err
	}
	t.resp.SectionsCreated = 1
	return fmt.Sprintf("Added section %d: %s.", sec.OrderIndex, sec.Title), nil
}

func (a *Agent) handleEditSection(ctx context.Context, t *turn) (string, error) {
	ref := t.intent.SectionText()
	if ref == "" {
		return "", notice(`Which section should I change? Try "rename section 2 to Related Work".`)
	}
	// "section methods to approach" is captured whole.
	if before, _, ok := strings.Cut(ref, " to "); ok {
		ref = before
	}
	sec, err := a.sectionByRef(ctx, t.projectID, ref)
	if err != nil {
		return "", err
	}

	title := t.intent.QueryText()
	if m := renameTarget.FindStringSubmatch(t.intent.RawMessage); m != nil {
		title = m[1]
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return "", notice("What should section %q be renamed to?", sec.Title)
	}
	if err := a.store.RenameSection(ctx, sec.ID, title); err != nil {
		return "", err
	}
	return fmt.Sprintf("Renamed section %q to %q.", sec.Title, title), nil
}

func (a *Agent) handleLinkSource(ctx context.Context, t *turn) (string, error) {
	if len(t.intent.PaperRefs) == 0 {
		return "", notice(`Which papers should I link? Try "link paper #5 to section 2".`)
	}
	ref := t.intent.SectionText()
	if ref == "" {
		return "", notice("Which section should %s support?", paperList(t.intent.PaperRefs))
	}
	sec, err := a.sectionByRef(ctx, t.projectID, ref)
	if err != nil {
		return "", err
	}
	papers, missing, err := a.papersByRef(ctx, t.projectID, t.intent.PaperRefs)
	if err != nil {
		return "", err
	}

	var claim types.OutlineClaim
	if len(sec.Claims) > 0 {
		claim = sec.Claims[0]
	} else {
		claim, err = a.store.CreateClaim(ctx, sec.ID, "Evidence for "+sec.Title, nil)
		if err != nil {
			return "", err
		}
		t.resp.ClaimsCreated = 1
	}

	ids := make([]string, len(papers))
	linked := make([]int, len(papers))
	for i, p := range papers {
		ids[i] = p.ID
		linked[i] = p.Index
	}
	merged, err := a.store.LinkClaimSources(ctx, claim.ID, ids)
	if err != nil {
		return "", err
	}
	t.resp.Metadata["claim_id"] = claim.ID

	msg := fmt.Sprintf("Linked %s to section %q (claim %q now has %d sources).",
		paperList(linked), sec.Title, claim.ClaimText, len(merged))
	if len(missing) > 0 {
		msg += fmt.Sprintf(" I couldn't find %s in your library.", paperList(missing))
	}
	return msg, nil
}

func (a *Agent) handleFindGaps(ctx context.Context, t *turn) (string, error) {
	outline, err := a.store.ListOutline(ctx, t.projectID)
	if err != nil {
		return "", err
	}
	if len(outline) == 0 {
		return "", notice(`There is no outline yet. Say "generate an outline" to create one.`)
	}
	gaps, err := a.store.UnsupportedClaims(ctx, t.projectID)
	if err != nil {
		return "", err
	}
	t.resp.Metadata["unsupported_claims"] = len(gaps)
	if len(gaps) == 0 {
		return "Every claim in the outline has at least one supporting source.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d claims need supporting sources:\n", len(gaps))
	for _, g := range gaps {
		fmt.Fprintf(&b, "\n- [%s] %s", g.SectionTitle, g.ClaimText)
	}
	b.WriteString("\n\nLink papers with \"link paper #N to section M\" or search for more evidence.")
	return b.String(), nil
}

// sectionByRef reports an unknown section as a notice.
func (a *Agent) sectionByRef(ctx context.Context, projectID, ref string) (types.OutlineSection, error) {
	sec, err := a.store.SectionByRef(ctx, projectID, ref)
	if errors.Is(err, store.ErrNotFound) {
		return sec, notice("I couldn't find section %q in the outline.", ref)
	}
	return sec, err
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
