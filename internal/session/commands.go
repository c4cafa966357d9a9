package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/daxxac/talk-tile-buddy/internal/board"
	"github.com/daxxac/talk-tile-buddy/internal/ipc"
	"github.com/daxxac/talk-tile-buddy/internal/locale"
	"github.com/daxxac/talk-tile-buddy/internal/pin"
	"github.com/daxxac/talk-tile-buddy/internal/transcript"
)

func (c *Controller) status(context.Context, ipc.Request) (string, any, error) {
	st := c.store.Snapshot()
	status := Status{
		State:         c.State(),
		Categories:    len(st.Categories),
		Tiles:         len(st.Tiles),
		Orphans:       len(c.store.Orphans()),
		Sentence:      len(st.Sentence),
		Language:      st.Preferences.Language,
		Direction:     locale.TextDirection(st.Preferences.Language),
		CaregiverMode: st.Preferences.CaregiverMode,
		HighContrast:  st.Preferences.HighContrast,
		IsLoading:     st.IsLoading,
		Error:         st.Error,
	}
	if c.boot != nil {
		status.Decision = c.boot.Result().Decision
	}
	return string(status.State), status, nil
}

func (c *Controller) snapshot(context.Context, ipc.Request) (string, any, error) {
	st := c.store.Snapshot()
	st.Preferences.PinHash = ""
	return "", st, nil
}

func (c *Controller) categories(context.Context, ipc.Request) (string, any, error) {
	lang := c.store.Preferences().Language
	categories := c.store.Categories()
	views := make([]CategoryView, 0, len(categories))
	for _, category := range categories {
		views = append(views, CategoryView{
			Category:    category,
			DisplayName: locale.CategoryName(category, lang),
			TileCount:   len(c.store.Tiles(category.ID)),
		})
	}
	return "", views, nil
}

func (c *Controller) tiles(_ context.Context, req ipc.Request) (string, any, error) {
	categoryID := optionalArg(req, 0)
	if categoryID != "" {
		if _, ok := c.store.Category(categoryID); !ok {
			return "", nil, fmt.Errorf("unknown category %q", categoryID)
		}
	}
	return "", c.tileViews(c.store.Tiles(categoryID)), nil
}

func (c *Controller) search(_ context.Context, req ipc.Request) (string, any, error) {
	var filters board.SearchFilters
	if len(req.Payload) > 0 {
		if err := req.Decode(&filters); err != nil {
			return "", nil, err
		}
	}
	if len(req.Args) > 0 {
		filters.Query = strings.Join(req.Args, " ")
	}
	if filters.Type != "" {
		tileType, err := board.ParseTileType(string(filters.Type))
		if err != nil {
			return "", nil, err
		}
		filters.Type = tileType
	}

	views := c.tileViews(c.store.Search(filters))
	message := ""
	if len(views) == 0 {
		message = locale.UIString(locale.KeySearchEmpty, c.store.Preferences().Language)
	}
	return message, views, nil
}

func (c *Controller) addCategory(_ context.Context, req ipc.Request) (string, any, error) {
	var in board.NewCategory
	if err := req.Decode(&in); err != nil {
		return "", nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return "", nil, errors.New("category name is required")
	}
	created := c.store.AddCategory(in)
	return "category added", created, nil
}

func (c *Controller) updateCategory(_ context.Context, req ipc.Request) (string, any, error) {
	id, err := requiredArg(req, 0, "category id")
	if err != nil {
		return "", nil, err
	}
	var patch board.CategoryPatch
	if err := req.Decode(&patch); err != nil {
		return "", nil, err
	}
	return changeMessage(c.store.UpdateCategory(id, patch), "category updated", "category"), nil, nil
}

func (c *Controller) deleteCategory(_ context.Context, req ipc.Request) (string, any, error) {
	id, err := requiredArg(req, 0, "category id")
	if err != nil {
		return "", nil, err
	}
	return changeMessage(c.store.DeleteCategory(id), "category deleted", "category"), nil, nil
}

func (c *Controller) reorderCategories(_ context.Context, req ipc.Request) (string, any, error) {
	if len(req.Args) == 0 {
		return "", nil, errors.New("at least one category id is required")
	}
	changed := c.store.ReorderCategories(req.Args)
	return orderMessage(changed, "categories"), nil, nil
}

func (c *Controller) addTile(_ context.Context, req ipc.Request) (string, any, error) {
	var in board.NewTile
	if err := req.Decode(&in); err != nil {
		return "", nil, err
	}
	in.Label = strings.TrimSpace(in.Label)
	if in.Label == "" {
		return "", nil, errors.New("tile label is required")
	}
	if _, ok := c.store.Category(in.CategoryID); !ok {
		return "", nil, fmt.Errorf("unknown category %q", in.CategoryID)
	}
	if in.Type != "" {
		tileType, err := board.ParseTileType(string(in.Type))
		if err != nil {
			return "", nil, err
		}
		in.Type = tileType
	}
	created := c.store.AddTile(in)
	return "tile added", tileView(created, c.store.Preferences().Language), nil
}

func (c *Controller) updateTile(_ context.Context, req ipc.Request) (string, any, error) {
	id, err := requiredArg(req, 0, "tile id")
	if err != nil {
		return "", nil, err
	}
	var patch board.TilePatch
	if err := req.Decode(&patch); err != nil {
		return "", nil, err
	}
	if patch.Type != nil {
		tileType, err := board.ParseTileType(string(*patch.Type))
		if err != nil {
			return "", nil, err
		}
		patch.Type = &tileType
	}
	if patch.CategoryID != nil {
		if _, ok := c.store.Category(*patch.CategoryID); !ok {
			return "", nil, fmt.Errorf("unknown category %q", *patch.CategoryID)
		}
	}
	return changeMessage(c.store.UpdateTile(id, patch), "tile updated", "tile"), nil, nil
}

func (c *Controller) deleteTile(_ context.Context, req ipc.Request) (string, any, error) {
	id, err := requiredArg(req, 0, "tile id")
	if err != nil {
		return "", nil, err
	}
	return changeMessage(c.store.DeleteTile(id), "tile deleted", "tile"), nil, nil
}

func (c *Controller) reorderTiles(_ context.Context, req ipc.Request) (string, any, error) {
	categoryID, err := requiredArg(req, 0, "category id")
	if err != nil {
		return "", nil, err
	}
	if len(req.Args) < 2 {
		return "", nil, errors.New("at least one tile id is required")
	}
	changed := c.store.ReorderTiles(categoryID, req.Args[1:])
	return orderMessage(changed, "tiles"), nil, nil
}

func (c *Controller) toggleFavorite(_ context.Context, req ipc.Request) (string, any, error) {
	id, err := requiredArg(req, 0, "tile id")
	if err != nil {
		return "", nil, err
	}
	favorite, found := c.store.ToggleFavorite(id)
	if !found {
		return "no such tile; nothing changed", nil, nil
	}
	return "favorite toggled", map[string]bool{"isFavorite": favorite}, nil
}

func (c *Controller) sentence(context.Context, ipc.Request) (string, any, error) {
	return "", c.sentenceView(), nil
}

func (c *Controller) addToSentence(ctx context.Context, req ipc.Request) (string, any, error) {
	if len(req.Args) == 0 {
		return "", nil, errors.New("at least one tile id is required")
	}
	for _, id := range req.Args {
		if _, ok := c.store.Tile(id); !ok {
			return "", nil, fmt.Errorf("unknown tile %q", id)
		}
	}
	for _, id := range req.Args {
		c.store.AddTileToSentence(id)
		c.feedback.CueSelect(ctx)
	}
	return "", c.sentenceView(), nil
}

func (c *Controller) removeFromSentence(_ context.Context, req ipc.Request) (string, any, error) {
	index, err := intArg(req, 0, "index")
	if err != nil {
		return "", nil, err
	}
	c.store.RemoveFromSentence(index)
	return "", c.sentenceView(), nil
}

func (c *Controller) clearSentence(ctx context.Context, _ ipc.Request) (string, any, error) {
	c.store.ClearSentence()
	c.feedback.CueClear(ctx)
	return "", c.sentenceView(), nil
}

func (c *Controller) moveInSentence(_ context.Context, req ipc.Request) (string, any, error) {
	from, err := intArg(req, 0, "from index")
	if err != nil {
		return "", nil, err
	}
	to, err := intArg(req, 1, "to index")
	if err != nil {
		return "", nil, err
	}
	c.store.ReorderSentence(from, to)
	return "", c.sentenceView(), nil
}

func (c *Controller) speak(ctx context.Context, _ ipc.Request) (string, any, error) {
	st := c.store.Snapshot()
	lang := st.Preferences.Language
	words := transcript.Resolve(st.Sentence, st.Tiles, lang)
	text := transcript.Build(st.Sentence, st.Tiles, lang)
	if text == "" {
		return "", nil, errors.New(locale.UIString(locale.KeySentenceEmpty, lang))
	}

	c.feedback.CueSpeak(ctx)
	if err := c.speaker.Speak(ctx, text, lang, st.Preferences.TTSVoice); err != nil {
		return "", nil, fmt.Errorf("speak: %w", err)
	}
	c.logger.Info("sentence spoken", "language", string(lang), "words", len(words))
	return text, SpeakResult{Text: text, Language: lang, Words: len(words)}, nil
}

func (c *Controller) preferences(context.Context, ipc.Request) (string, any, error) {
	return "", preferenceView(c.store.Preferences()), nil
}

func (c *Controller) updatePreferences(ctx context.Context, req ipc.Request) (string, any, error) {
	var patch board.PreferencePatch
	if err := req.Decode(&patch); err != nil {
		return "", nil, err
	}
	if patch.PinHash != nil {
		return "", nil, errors.New("pinHash cannot be set directly; use pin.set")
	}
	if patch.CaregiverMode != nil {
		return "", nil, errors.New("caregiverMode cannot be set directly; use caregiver.toggle")
	}

	before := c.store.Preferences()
	if err := c.store.UpdatePreferences(patch); err != nil {
		return "", nil, err
	}
	after := c.store.Preferences()
	if after.Language != before.Language {
		c.feedback.Notify(ctx, "tilebuddy", fmt.Sprintf("%s: %s %s",
			locale.UIString(locale.KeyLanguageChanged, after.Language),
			locale.Flag(after.Language),
			locale.DisplayName(after.Language),
		))
	}
	return "preferences updated", preferenceView(after), nil
}

func (c *Controller) toggleCaregiver(ctx context.Context, req ipc.Request) (string, any, error) {
	var in PINPayload
	if len(req.Payload) > 0 {
		if err := req.Decode(&in); err != nil {
			return "", nil, err
		}
	}

	pref := c.store.Preferences()
	if !pref.CaregiverMode {
		if err := pin.Verify(pref.PinHash, in.PIN); err != nil {
			c.logger.Warn("caregiver mode entry refused", "error", err.Error())
			return "", nil, err
		}
	}

	enabled := c.store.ToggleCaregiverMode()
	key := locale.KeyCaregiverOff
	if enabled {
		key = locale.KeyCaregiverOn
	}
	message := locale.UIString(key, pref.Language)
	c.feedback.Notify(ctx, "tilebuddy", message)
	return message, map[string]bool{"caregiverMode": enabled}, nil
}

func (c *Controller) setPIN(_ context.Context, req ipc.Request) (string, any, error) {
	var in PINPayload
	if err := req.Decode(&in); err != nil {
		return "", nil, err
	}

	pref := c.store.Preferences()
	if err := pin.Verify(pref.PinHash, in.Current); err != nil {
		return "", nil, fmt.Errorf("current PIN: %w", err)
	}

	hash := ""
	if in.PIN != "" {
		var err error
		hash, err = pin.Hash(in.PIN)
		if err != nil {
			return "", nil, err
		}
	}
	if err := c.store.UpdatePreferences(board.PreferencePatch{PinHash: &hash}); err != nil {
		return "", nil, err
	}
	if hash == "" {
		return "PIN cleared", nil, nil
	}
	return "PIN set", nil, nil
}

func (c *Controller) setContrast(_ context.Context, req ipc.Request) (string, any, error) {
	raw, err := requiredArg(req, 0, "on|off")
	if err != nil {
		return "", nil, err
	}
	enabled, err := parseSwitch(raw)
	if err != nil {
		return "", nil, err
	}
	c.store.SetHighContrast(enabled)
	return "", map[string]bool{"highContrast": enabled}, nil
}

func (c *Controller) exportData(context.Context, ipc.Request) (string, any, error) {
	doc, err := c.store.ExportData()
	if err != nil {
		return "", nil, err
	}
	return "", Document{Body: doc}, nil
}

func (c *Controller) importData(ctx context.Context, req ipc.Request) (string, any, error) {
	var in Document
	if err := req.Decode(&in); err != nil {
		return "", nil, err
	}

	c.store.SetLoading(true)
	defer c.store.SetLoading(false)

	lang := c.store.Preferences().Language
	if err := c.store.ImportData(in.Body); err != nil {
		c.feedback.Notify(ctx, "tilebuddy", locale.UIString(locale.KeyImportFailed, lang))
		return "", nil, err
	}
	c.recoverBootstrap()
	lang = c.store.Preferences().Language
	message := locale.UIString(locale.KeyImportDone, lang)
	c.feedback.Notify(ctx, "tilebuddy", message)
	return message, c.counts(), nil
}

func (c *Controller) reset(ctx context.Context, _ ipc.Request) (string, any, error) {
	c.store.ResetToSeedData()
	c.store.SetError("")
	c.recoverBootstrap()
	message := locale.UIString(locale.KeyDataReset, c.store.Preferences().Language)
	c.feedback.Notify(ctx, "tilebuddy", message)
	return message, c.counts(), nil
}

func (c *Controller) setLoading(_ context.Context, req ipc.Request) (string, any, error) {
	raw, err := requiredArg(req, 0, "true|false")
	if err != nil {
		return "", nil, err
	}
	loading, err := parseSwitch(raw)
	if err != nil {
		return "", nil, err
	}
	c.store.SetLoading(loading)
	return "", map[string]bool{"isLoading": loading}, nil
}

func (c *Controller) setError(_ context.Context, req ipc.Request) (string, any, error) {
	message := strings.TrimSpace(strings.Join(req.Args, " "))
	c.store.SetError(message)
	if message == "" {
		return "error cleared", nil, nil
	}
	return "error set", nil, nil
}

// recoverBootstrap marks a failed bootstrap ready once the board has been replaced.
func (c *Controller) recoverBootstrap() {
	if c.boot != nil && c.boot.Recovered() {
		c.logger.Info("board recovered after failed bootstrap")
	}
}

func (c *Controller) tileViews(tiles []board.Tile) []TileView {
	lang := c.store.Preferences().Language
	views := make([]TileView, 0, len(tiles))
	for _, t := range tiles {
		views = append(views, tileView(t, lang))
	}
	return views
}

func (c *Controller) sentenceView() SentenceView {
	st := c.store.Snapshot()
	lang := st.Preferences.Language
	view := SentenceView{
		Items:      st.Sentence,
		Words:      transcript.Resolve(st.Sentence, st.Tiles, lang),
		Transcript: transcript.Build(st.Sentence, st.Tiles, lang),
		Direction:  locale.TextDirection(lang),
	}
	if len(st.Sentence) == 0 {
		view.Placeholder = locale.UIString(locale.KeySentenceEmpty, lang)
	}
	return view
}

func (c *Controller) counts() map[string]int {
	st := c.store.Snapshot()
	return map[string]int{"categories": len(st.Categories), "tiles": len(st.Tiles)}
}

func optionalArg(req ipc.Request, i int) string {
	if i < len(req.Args) {
		return strings.TrimSpace(req.Args[i])
	}
	return ""
}

func requiredArg(req ipc.Request, i int, name string) (string, error) {
	value := optionalArg(req, i)
	if value == "" {
		return "", fmt.Errorf("%s: missing %s", req.Command, name)
	}
	return value, nil
}

func intArg(req ipc.Request, i int, name string) (int, error) {
	raw, err := requiredArg(req, i, name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %s must be an integer, got %q", req.Command, name, raw)
	}
	return n, nil
}

func parseSwitch(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("expected on|off, got %q", raw)
	}
}

func changeMessage(changed bool, done string, noun string) string {
	if changed {
		return done
	}
	return fmt.Sprintf("no such %s; nothing changed", noun)
}

func orderMessage(changed bool, noun string) string {
	if changed {
		return noun + " reordered"
	}
	return noun + " already in that order"
}
