package chat

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"piefitness/internal/logging"
)

// Catalog holds the pattern catalogs driving scope analysis and
// truncation detection. The rules are data, not control flow, so
// deployments can extend them (for example per supported language)
// without touching the pipeline. A catalog is immutable once built;
// hot reload swaps the whole catalog.
type Catalog struct {
	Fitness    *regexp.Regexp
	Health     *regexp.Regexp
	Greeting   *regexp.Regexp
	OffTopic   []*regexp.Regexp
	Question   *regexp.Regexp
	Connectors *regexp.Regexp
	Incomplete *regexp.Regexp

	// Terminal punctuation for sentence boundaries, including
	// Devanagari danda forms.
	Terminal  *regexp.Regexp
	Sentences *regexp.Regexp
}

// CatalogFile is the YAML form of a pattern catalog. Any omitted field
// falls back to the built-in default.
type CatalogFile struct {
	Fitness    string   `yaml:"fitness"`
	Health     string   `yaml:"health"`
	Greeting   string   `yaml:"greeting"`
	OffTopic   []string `yaml:"off_topic"`
	Connectors string   `yaml:"connectors"`
	Incomplete string   `yaml:"incomplete"`
}

const (
	defaultFitnessPattern = `(?i)\b(workout|exercise|gym|fitness|muscle|strength|diet|nutrition|protein|weight|fat|cardio|training|bodybuilding|squat|deadlift|bench|bicep|tricep|abs|core|calories|supplement|creatine|whey|vitamins|health|body|physique|bulk|cut|lean|reps|sets|form|technique|yoga|pilates|crossfit|running|jogging|swimming|cycling|marathon|athlete|sports|recovery|rest|sleep|hydration|meal|macros|carbs|fats|minerals|coach|trainer|challenge|transformation|motivation|discipline|consistency|gains|progress|goals|target|achievement)\b`

	defaultHealthPattern = `(?i)\b(health|healthy|wellness|wellbeing|medical|doctor|injury|pain|recovery|rehabilitation|therapy|medicine|treatment|disease|illness|mental health|stress|anxiety|depression|energy|stamina|endurance|flexibility|mobility|posture|spine|joint|bone|heart|blood|pressure|diabetes|cholesterol)\b`

	defaultGreetingPattern = `(?i)^(hi+|hello+|hey+|hii+|hiya|yo|sup|what's up|namaste|salaam|adaab|kaise ho|kya haal|how are you|good morning|good evening)\b`

	defaultQuestionPattern = `(?i)^(what|how|why|when|where|which|who|can|should|will|do|does|is|are)\b`

	defaultConnectorPattern = `(?i)[,;:\-(\[]$|\b(and|but|or|because|so|then|however|ki|ka|ke|ko|se|mein|hai|ho|aur|lekin|par|main|yeh|dhyan|karna|chahiye|batata|karein)\s*$`

	defaultIncompletePattern = `(?i)\b(main aapko|yeh dhyan|karna chahiye|batata hoon|karein aur|tareeke se|chahiye aur|hoon jo|kar sakte|ho sakta|raha hai|karne ka|se pehle)\s*$`
)

var defaultOffTopicPatterns = []string{
	`(?i)\b(movie|film|cinema|bollywood|hollywood|actor|actress|song|music|singer|dance|party|politics|politician|election|government|news|weather|cooking|recipe|travel|vacation|holiday|business|job|career|money|shopping|fashion|clothes|technology|phone|computer|software|gaming|game|cricket|football|soccer|IPL|world cup|exam|study|school|college|university|relationship|girlfriend|boyfriend|marriage|wedding|family|friends|love|romance)\b`,
	`(?i)\b(kya kar rahe|movie dekhi|film dekhi|gaana|paisa|paise|padhai|shaadi|pyaar|mohabbat|dost|ghar|office|kaam)\b`,
}

// DefaultCatalog returns the built-in pattern catalog.
func DefaultCatalog() *Catalog {
	c, err := buildCatalog(CatalogFile{})
	if err != nil {
		// Built-in patterns are compile-time constants; a failure here
		// is a programming error.
		panic(fmt.Sprintf("default catalog invalid: %v", err))
	}
	return c
}

// LoadCatalog reads a YAML pattern catalog, falling back to defaults for
// any omitted field.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	return buildCatalog(file)
}

func buildCatalog(file CatalogFile) (*Catalog, error) {
	compile := func(name, pattern, fallback string) (*regexp.Regexp, error) {
		if strings.TrimSpace(pattern) == "" {
			pattern = fallback
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern: %w", name, err)
		}
		return re, nil
	}

	fitness, err := compile("fitness", file.Fitness, defaultFitnessPattern)
	if err != nil {
		return nil, err
	}
	health, err := compile("health", file.Health, defaultHealthPattern)
	if err != nil {
		return nil, err
	}
	greeting, err := compile("greeting", file.Greeting, defaultGreetingPattern)
	if err != nil {
		return nil, err
	}
	connectors, err := compile("connectors", file.Connectors, defaultConnectorPattern)
	if err != nil {
		return nil, err
	}
	incomplete, err := compile("incomplete", file.Incomplete, defaultIncompletePattern)
	if err != nil {
		return nil, err
	}

	offTopicSrc := file.OffTopic
	if len(offTopicSrc) == 0 {
		offTopicSrc = defaultOffTopicPatterns
	}
	offTopic := make([]*regexp.Regexp, 0, len(offTopicSrc))
	for _, p := range offTopicSrc {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid off_topic pattern: %w", err)
		}
		offTopic = append(offTopic, re)
	}

	return &Catalog{
		Fitness:    fitness,
		Health:     health,
		Greeting:   greeting,
		OffTopic:   offTopic,
		Question:   regexp.MustCompile(defaultQuestionPattern),
		Connectors: connectors,
		Incomplete: incomplete,
		Terminal:   regexp.MustCompile(`[.!?।॥]$`),
		Sentences:  regexp.MustCompile(`[^.!?।॥]+[.!?।॥]?`),
	}, nil
}

// CatalogHolder provides swap-on-reload access to the active catalog.
type CatalogHolder struct {
	mu      sync.RWMutex
	catalog *Catalog
	watcher *fsnotify.Watcher
}

// NewCatalogHolder wraps a catalog for concurrent readers.
func NewCatalogHolder(c *Catalog) *CatalogHolder {
	return &CatalogHolder{catalog: c}
}

// Get returns the active catalog.
func (h *CatalogHolder) Get() *Catalog {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.catalog
}

// Set swaps the active catalog.
func (h *CatalogHolder) Set(c *Catalog) {
	h.mu.Lock()
	h.catalog = c
	h.mu.Unlock()
}

// Watch reloads the catalog whenever the file at path changes. Invalid
// edits are logged and skipped; the previous catalog stays active.
func (h *CatalogHolder) Watch(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	h.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				catalog, err := LoadCatalog(path)
				if err != nil {
					logging.Get(logging.CategoryCatalog).Warn("catalog reload failed: %v", err)
					continue
				}
				h.Set(catalog)
				logging.Catalog("catalog reloaded from %s", path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Get(logging.CategoryCatalog).Warn("catalog watcher error: %v", err)
			}
		}
	}()

	return nil
}

// Close stops the file watcher, if one is running.
func (h *CatalogHolder) Close() error {
	if h.watcher != nil {
		return h.watcher.Close()
	}
	return nil
}
