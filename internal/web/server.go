package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/studydesk/internal/domain"
	"github.com/example/studydesk/internal/essay"
	"github.com/example/studydesk/internal/session"
	"github.com/example/studydesk/internal/source"
	"github.com/example/studydesk/internal/speech"
	"github.com/example/studydesk/internal/srs"
	"github.com/example/studydesk/internal/storage"
	"github.com/example/studydesk/internal/study"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

// maxImportSize bounds uploaded deck files.
const maxImportSize = 8 << 20

// Server holds the dependencies for the HTTP rendering layer. It issues
// controller commands and re-reads state to redraw; it never touches
// scheduling or placement fields directly.
type Server struct {
	study       *study.Controller
	essay       *essay.Controller
	sources     *source.Service
	db          *storage.DB
	speech      speech.Synthesizer
	speechRate  float64
	defaultMode session.Mode
	router      *http.ServeMux
	templates   *template.Template
	log         *slog.Logger
}

// NewServer creates and configures a new server.
func NewServer(studyCtrl *study.Controller, essayCtrl *essay.Controller, sources *source.Service, db *storage.DB, synth speech.Synthesizer, speechRate float64, defaultMode session.Mode, logger *slog.Logger) (*Server, error) {
	tpl, err := template.New("").Funcs(template.FuncMap{
		"add": func(a, b int) int { return a + b },
	}).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		study:       studyCtrl,
		essay:       essayCtrl,
		sources:     sources,
		db:          db,
		speech:      synth,
		speechRate:  speechRate,
		defaultMode: defaultMode,
		router:      http.NewServeMux(),
		templates:   tpl,
		log:         logger,
	}
	s.routes()
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("static assets missing from binary: %v", err))
	}
	fileServer := http.FileServer(http.FS(staticFS))

	s.router.Handle("/static/", http.StripPrefix("/static/", fileServer))
	s.router.Handle("/", fileServer)

	// Vocabulary app
	s.router.HandleFunc("/deck", s.handleGetDeck)
	s.router.HandleFunc("/decks", s.handlePostDeck)
	s.router.HandleFunc("/decks/select", s.handleSelectDeck)
	s.router.HandleFunc("/decks/", s.handleDeleteDeck)
	s.router.HandleFunc("/items", s.handlePostItem)
	s.router.HandleFunc("/items/", s.handleDeleteItem)
	s.router.HandleFunc("/import", s.handleImport)
	s.router.HandleFunc("/export/json", s.handleExportJSON)
	s.router.HandleFunc("/export/csv", s.handleExportCSV)
	s.router.HandleFunc("/stats", s.handleGetStats)

	// Study session
	s.router.HandleFunc("/study/start", s.handleStartStudy)
	s.router.HandleFunc("/study/card", s.handleGetCard)
	s.router.HandleFunc("/study/reveal", s.handleReveal)
	s.router.HandleFunc("/study/hint", s.handleHint)
	s.router.HandleFunc("/study/answer", s.handleAnswer)
	s.router.HandleFunc("/study/grade", s.handleGrade)
	s.router.HandleFunc("/study/quit", s.handleQuitStudy)
	s.router.HandleFunc("/speak", s.handleSpeak)

	// Essay app
	s.router.HandleFunc("/essay", s.handleGetEssay)
	s.router.HandleFunc("/essay/select", s.handleEssaySelect)
	s.router.HandleFunc("/essay/place", s.handleEssayPlace)
	s.router.HandleFunc("/essay/clear", s.handleEssayClear)
	s.router.HandleFunc("/essay/check", s.handleEssayCheck)
	s.router.HandleFunc("/essay/hint", s.handleEssayHint)
	s.router.HandleFunc("/essay/move", s.handleEssayMove)
	s.router.HandleFunc("/essay/order/check", s.handleEssayOrderCheck)
	s.router.HandleFunc("/essay/reset", s.handleEssayReset)

	// Deck sources
	s.router.HandleFunc("/sources", s.handleSources)
	s.router.HandleFunc("/sources/", s.handleDeleteSource)
	s.router.HandleFunc("/sync", s.handleSync)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("template render failed", "template", name, "error", err)
	}
}

// deckView is the data behind the deck overview fragment.
type deckView struct {
	Deck     *domain.Deck
	Decks    []*domain.Deck
	DueCount int
	Message  string
	Warning  string
}

func (s *Server) renderDeck(w http.ResponseWriter, message, warning string) {
	s.render(w, "deck", deckView{
		Deck:     s.study.ActiveDeck(),
		Decks:    s.study.State().Decks,
		DueCount: s.study.DueCount(),
		Message:  message,
		Warning:  warning,
	})
}

func (s *Server) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	s.renderDeck(w, "", "")
}

func (s *Server) handlePostDeck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.study.CreateDeck(r.PostFormValue("title"))
	s.renderDeck(w, "", "")
}

func (s *Server) handleSelectDeck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.study.SelectDeck(r.PostFormValue("id")); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.renderDeck(w, "", "")
}

func (s *Server) handleDeleteDeck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/decks/")
	if err := s.study.DeleteDeck(id); err != nil {
		s.renderDeck(w, err.Error(), "")
		return
	}
	s.renderDeck(w, "", "")
}

func (s *Server) handlePostItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	_, duplicate, err := s.study.AddItem(
		r.PostFormValue("term"),
		r.PostFormValue("definition"),
		r.PostFormValue("example"),
	)
	if errors.Is(err, study.ErrMissingFields) {
		// Recoverable: the add is blocked, the form stays usable.
		s.renderDeck(w, "Term and definition are both required.", "")
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	warning := ""
	if duplicate {
		warning = "An item with this term already exists in the deck."
	}
	s.renderDeck(w, "", warning)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/items/")
	if err := s.study.DeleteItem(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.renderDeck(w, "", "")
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.renderDeck(w, "Choose a .json or .csv file to import.", "")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportSize))
	if err != nil {
		http.Error(w, "Failed to read upload", http.StatusInternalServerError)
		return
	}

	deck, err := s.study.ImportFile(header.Filename, data)
	if err != nil {
		// Unsupported types and parse failures are user-facing, never fatal.
		s.renderDeck(w, err.Error(), "")
		return
	}
	s.renderDeck(w, fmt.Sprintf("Imported %q with %d items.", deck.Title, len(deck.Items)), "")
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.study.ExportJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	serveDownload(w, name, "application/json", data)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.study.ExportCSV()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	serveDownload(w, name, "text/csv", data)
}

func serveDownload(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(data)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.Stats(time.Now())
	if err != nil {
		s.log.Error("failed to load review stats", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.render(w, "stats", stats)
}

// cardView is the data behind the card front and back fragments.
type cardView struct {
	Item      *domain.Item
	Task      session.Task
	Options   []string
	Remaining int
	Revealed  bool
	HintUsed  bool
	Message   string
}

func (s *Server) renderCard(w http.ResponseWriter, message string) {
	sess := s.study.Session()
	if sess == nil || sess.Current == nil {
		s.renderDeck(w, "Session complete.", "")
		return
	}
	view := cardView{
		Item:      sess.Current,
		Task:      sess.Task,
		Remaining: sess.Remaining(),
		Revealed:  sess.Revealed,
		HintUsed:  sess.HintUsed,
		Message:   message,
	}
	if sess.Task == session.TaskChoice {
		options, err := s.study.Options()
		if err == nil {
			view.Options = options
		}
	}
	if sess.Revealed {
		s.render(w, "card_back", view)
		return
	}
	s.render(w, "card_front", view)
}

func (s *Server) handleStartStudy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	mode := session.Mode(r.PostFormValue("mode"))
	if mode == "" {
		mode = s.defaultMode
	}
	ahead := r.PostFormValue("ahead") == "on"

	if _, err := s.study.StartStudy(mode, ahead); err != nil {
		if errors.Is(err, session.ErrNothingDue) {
			s.renderDeck(w, "Nothing is due right now. Tick \"study ahead\" to review early.", "")
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.renderCard(w, "")
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	s.renderCard(w, "")
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.study.Reveal(); err != nil {
		s.renderDeck(w, "", "")
		return
	}
	s.renderCard(w, "")
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.study.UseHint(); err != nil {
		s.renderDeck(w, "", "")
		return
	}
	s.renderCard(w, "Hint noted: a success now schedules a shorter interval.")
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	correct, err := s.study.CheckAnswer(r.PostFormValue("answer"))
	if err != nil {
		s.renderDeck(w, "", "")
		return
	}
	if err := s.study.Reveal(); err != nil {
		s.renderDeck(w, "", "")
		return
	}
	if correct {
		s.renderCard(w, "Correct!")
		return
	}
	s.renderCard(w, "Not quite.")
}

func (s *Server) handleGrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	done, err := s.study.SubmitGrade(srs.Grade(r.PostFormValue("grade")))
	if err != nil {
		s.renderDeck(w, "", "")
		return
	}
	if done {
		s.renderDeck(w, "Session complete. Nice work.", "")
		return
	}
	s.renderCard(w, "")
}

func (s *Server) handleQuitStudy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.study.QuitStudy()
	s.renderDeck(w, "", "")
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	term := r.PostFormValue("term")
	if err := s.speech.Speak(term, s.speechRate); err != nil {
		// Degrade to a visible message; speech failures never propagate.
		s.render(w, "speech_unavailable", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// essayView is the data behind the essay board fragment.
type essayView struct {
	Board   *essay.Board
	Current *essay.SentenceState
	Marks   []bool
	Checked bool
	AllOK   bool
	Message string
}

func (s *Server) renderEssay(w http.ResponseWriter, view essayView) {
	view.Board = s.essay.Board()
	if view.Board.Current >= 0 && view.Board.Current < len(view.Board.Sentences) {
		view.Current = view.Board.Sentences[view.Board.Current]
	}
	s.render(w, "essay_board", view)
}

func (s *Server) handleGetEssay(w http.ResponseWriter, r *http.Request) {
	s.renderEssay(w, essayView{})
}

func (s *Server) handleEssaySelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	i, err := strconv.Atoi(r.PostFormValue("sentence"))
	if err != nil {
		http.Error(w, "Invalid sentence index", http.StatusBadRequest)
		return
	}
	if err := s.essay.SelectSentence(i); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.renderEssay(w, essayView{})
}

func (s *Server) handleEssayPlace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sentence, err1 := strconv.Atoi(r.PostFormValue("sentence"))
	slot, err2 := strconv.Atoi(r.PostFormValue("slot"))
	if err1 != nil || err2 != nil {
		http.Error(w, "Invalid placement", http.StatusBadRequest)
		return
	}
	if err := s.essay.PlaceChunk(sentence, slot, r.PostFormValue("chunk")); err != nil {
		s.renderEssay(w, essayView{Message: err.Error()})
		return
	}
	s.renderEssay(w, essayView{})
}

func (s *Server) handleEssayClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sentence, err1 := strconv.Atoi(r.PostFormValue("sentence"))
	slot, err2 := strconv.Atoi(r.PostFormValue("slot"))
	if err1 != nil || err2 != nil {
		http.Error(w, "Invalid slot", http.StatusBadRequest)
		return
	}
	if err := s.essay.ClearSlot(sentence, slot); err != nil {
		s.renderEssay(w, essayView{Message: err.Error()})
		return
	}
	s.renderEssay(w, essayView{})
}

func (s *Server) handleEssayCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	i, err := strconv.Atoi(r.PostFormValue("sentence"))
	if err != nil {
		http.Error(w, "Invalid sentence index", http.StatusBadRequest)
		return
	}
	ok, err := s.essay.CheckSentence(i)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if ok {
		s.renderEssay(w, essayView{Message: "Sentence solved!"})
		return
	}
	s.renderEssay(w, essayView{Message: "Not quite. Keep rearranging."})
}

func (s *Server) handleEssayHint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	i, err := strconv.Atoi(r.PostFormValue("sentence"))
	if err != nil {
		http.Error(w, "Invalid sentence index", http.StatusBadRequest)
		return
	}
	slot, err := s.essay.HintSentence(i)
	if err != nil {
		s.renderEssay(w, essayView{Message: err.Error()})
		return
	}
	if slot < 0 {
		s.renderEssay(w, essayView{Message: "Everything is already in place."})
		return
	}
	s.renderEssay(w, essayView{Message: fmt.Sprintf("Filled slot %d for you.", slot+1)})
}

func (s *Server) handleEssayMove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	from, err1 := strconv.Atoi(r.PostFormValue("from"))
	to, err2 := strconv.Atoi(r.PostFormValue("to"))
	if err1 != nil || err2 != nil {
		http.Error(w, "Invalid move", http.StatusBadRequest)
		return
	}
	if err := s.essay.Reorder(from, to); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.renderEssay(w, essayView{})
}

func (s *Server) handleEssayOrderCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	marks, all := s.essay.CheckOrdering()
	view := essayView{Marks: marks, Checked: true, AllOK: all}
	if all {
		view.Message = "The essay is in order. Well done!"
	}
	s.renderEssay(w, view)
}

func (s *Server) handleEssayReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.essay.Reset()
	s.renderEssay(w, essayView{})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderSources(w)
	case http.MethodPost:
		path := r.PostFormValue("path")
		if path == "" {
			http.Error(w, "Path cannot be empty", http.StatusBadRequest)
			return
		}
		if _, err := s.sources.Add(path); err != nil {
			s.log.Error("failed to add source", "path", path, "error", err)
			http.Error(w, "Failed to add source", http.StatusInternalServerError)
			return
		}
		s.renderSources(w)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	idStr := strings.TrimPrefix(r.URL.Path, "/sources/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "Invalid source ID", http.StatusBadRequest)
		return
	}
	if err := s.db.DeleteSource(id); err != nil {
		s.log.Error("failed to delete source", "id", id, "error", err)
		http.Error(w, "Failed to delete source", http.StatusInternalServerError)
		return
	}
	s.renderSources(w)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.sources.SyncAll(); err != nil {
		s.log.Error("sync failed", "error", err)
		http.Error(w, "Sync failed", http.StatusInternalServerError)
		return
	}
	s.renderSources(w)
}

func (s *Server) renderSources(w http.ResponseWriter) {
	sources, err := s.db.GetAllSources()
	if err != nil {
		s.log.Error("failed to list sources", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.render(w, "sources", map[string]any{"Sources": sources})
}
