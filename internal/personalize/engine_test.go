package personalize

import (
	"context"
	"testing"
	"time"

	"github.com/coinwatch/newsrag/internal/db"
	"github.com/coinwatch/newsrag/internal/newsstore"
)

func newTestEngine() (*Engine, *time.Time) {
	e := NewEngine(Config{})
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }
	return e, &now
}

func result(id, title, content, source string, score float64) newsstore.SearchResult {
	return newsstore.SearchResult{
		Document: newsstore.Document{
			ID:      id,
			Content: content,
			Metadata: newsstore.Metadata{
				Title:  title,
				Source: source,
			},
		},
		Score: score,
	}
}

func TestExtractTopicsCanonicalizesAliases(t *testing.T) {
	topics := ExtractTopics("what is the BTC and bitcoin outlook after the ETF news?")
	want := map[string]bool{"Bitcoin": false, "ETF": false}
	for _, topic := range topics {
		if _, ok := want[topic]; !ok {
			t.Errorf("unexpected topic %q", topic)
			continue
		}
		want[topic] = true
	}
	for topic, found := range want {
		if !found {
			t.Errorf("missing topic %q in %v", topic, topics)
		}
	}
	// btc and bitcoin collapse to one entry.
	if len(topics) != 2 {
		t.Errorf("got %d topics %v, want 2", len(topics), topics)
	}
}

func TestExtractTopicsWordBoundaries(t *testing.T) {
	// "settlement" contains "etf"? No, but "bengal" contains no topic.
	// Verify a topic inside a longer word does not match.
	topics := ExtractTopics("the adoption of stethoscopes")
	for _, topic := range topics {
		if topic == "Ethereum" {
			t.Errorf("matched eth inside stethoscopes")
		}
	}
}

func TestRecordQueryCreatesProfileAndInfersInterests(t *testing.T) {
	e, _ := newTestEngine()
	e.RecordQuery("u1", "bitcoin etf approval")

	export := e.ExportUserData("u1")
	if export == nil {
		t.Fatal("profile not created")
	}
	if len(export.QueryHistory) != 1 {
		t.Fatalf("history length %d, want 1", len(export.QueryHistory))
	}
	weights := make(map[string]float64)
	for _, i := range export.InferredInterests {
		weights[i.Topic] = i.Weight
	}
	if weights["Bitcoin"] != 0.3 || weights["ETF"] != 0.3 {
		t.Errorf("initial weights = %v, want 0.3 each", weights)
	}
}

func TestRepeatedTopicAccumulatesAndCaps(t *testing.T) {
	e, _ := newTestEngine()
	for i := 0; i < 10; i++ {
		e.RecordQuery("u1", "bitcoin price")
	}
	export := e.ExportUserData("u1")
	for _, interest := range export.InferredInterests {
		if interest.Topic != "Bitcoin" {
			continue
		}
		if interest.Weight != 1.0 {
			t.Errorf("weight = %v, want capped at 1.0", interest.Weight)
		}
		if interest.SourceCount != 10 {
			t.Errorf("sourceCount = %d, want 10", interest.SourceCount)
		}
		return
	}
	t.Fatal("Bitcoin interest missing")
}

func TestInterestDecayAndPruning(t *testing.T) {
	e, now := newTestEngine()
	e.RecordQuery("u1", "solana staking")

	// 5 days later a different topic. Solana decays 5*0.02 = 0.1 down to
	// 0.2 but stays; staking likewise.
	*now = now.Add(5 * 24 * time.Hour)
	e.RecordQuery("u1", "bitcoin etf")
	export := e.ExportUserData("u1")
	weights := make(map[string]float64)
	for _, i := range export.InferredInterests {
		weights[i.Topic] = i.Weight
	}
	if w := weights["Solana"]; w < 0.199 || w > 0.201 {
		t.Errorf("Solana weight after 5 days = %v, want 0.2", w)
	}

	// 6 more days takes Solana to 0.08, below the 0.1 floor.
	*now = now.Add(6 * 24 * time.Hour)
	e.RecordQuery("u1", "bitcoin halving")
	export = e.ExportUserData("u1")
	for _, i := range export.InferredInterests {
		if i.Topic == "Solana" {
			t.Errorf("Solana survived with weight %v, want pruned", i.Weight)
		}
	}
}

func TestInferredInterestsCapEvictsLowest(t *testing.T) {
	e, _ := newTestEngine()
	e.cfg.MaxInferredInterests = 2
	e.RecordQuery("u1", "bitcoin bitcoin")
	e.RecordQuery("u1", "bitcoin ethereum")
	e.RecordQuery("u1", "solana")

	export := e.ExportUserData("u1")
	if len(export.InferredInterests) != 2 {
		t.Fatalf("got %d interests, want 2", len(export.InferredInterests))
	}
	for _, i := range export.InferredInterests {
		if i.Topic == "Solana" && i.Weight <= 0.3 {
			t.Errorf("lowest-weight entry %q kept over heavier ones", i.Topic)
		}
	}
}

func TestHistoryCap(t *testing.T) {
	e, _ := newTestEngine()
	e.cfg.MaxHistorySize = 3
	for i := 0; i < 5; i++ {
		e.RecordQuery("u1", "bitcoin query")
	}
	export := e.ExportUserData("u1")
	if len(export.QueryHistory) != 3 {
		t.Errorf("history length %d, want 3", len(export.QueryHistory))
	}
}

func TestPrivacyModeSkipsHistoryButInfersInterests(t *testing.T) {
	e, _ := newTestEngine()
	e.RecordQuery("u1", "bitcoin news")
	e.SetPrivacyMode("u1", true)

	export := e.ExportUserData("u1")
	if len(export.QueryHistory) != 0 {
		t.Errorf("enabling privacy mode kept %d history entries", len(export.QueryHistory))
	}

	e.RecordQuery("u1", "ethereum upgrade")
	export = e.ExportUserData("u1")
	if len(export.QueryHistory) != 0 {
		t.Errorf("history grew in privacy mode")
	}
	var found bool
	for _, i := range export.InferredInterests {
		if i.Topic == "Ethereum" {
			found = true
		}
	}
	if !found {
		t.Error("interest inference stopped in privacy mode")
	}
}

func TestPersonalizeRankingUnknownUserPassThrough(t *testing.T) {
	e, _ := newTestEngine()
	input := []newsstore.SearchResult{
		result("a", "Bitcoin news", "", "coindesk", 0.9),
	}
	out, adj := e.PersonalizeRanking("nobody", input)
	if out[0].Score != 0.9 {
		t.Errorf("score changed for unknown user: %v", out[0].Score)
	}
	if adj != (Adjustments{}) {
		t.Errorf("adjustments for unknown user: %+v", adj)
	}
}

func TestPersonalizeRankingIsPure(t *testing.T) {
	e, _ := newTestEngine()
	e.RecordQuery("u1", "bitcoin")
	input := []newsstore.SearchResult{
		result("low", "Ethereum roadmap", "ethereum details", "decrypt", 0.5),
		result("high", "Market wrap", "general market news", "coindesk", 0.9),
	}
	e.PersonalizeRanking("u1", input)
	if input[0].Document.ID != "low" || input[0].Score != 0.5 {
		t.Errorf("input mutated: %q/%v", input[0].Document.ID, input[0].Score)
	}
}

func TestPersonalizeRankingInterestBoostAppliedOnce(t *testing.T) {
	e, _ := newTestEngine()
	// Two strong interests; a doc matching both gets boosted once.
	e.RecordQuery("u1", "bitcoin etf bitcoin etf")
	input := []newsstore.SearchResult{
		result("both", "Bitcoin ETF launch", "bitcoin etf coverage", "decrypt", 0.5),
	}
	out, adj := e.PersonalizeRanking("u1", input)
	want := 0.5 * 1.3
	if diff := out[0].Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("score = %v, want %v (single boost)", out[0].Score, want)
	}
	if adj.InterestBoosted != 1 {
		t.Errorf("interestBoosted = %d, want 1", adj.InterestBoosted)
	}
}

func TestPersonalizeRankingOvertake(t *testing.T) {
	// An interest-matching doc at 0.7 overtakes a 0.9 leader: 0.91 > 0.9.
	e, _ := newTestEngine()
	e.RecordQuery("u1", "solana")
	input := []newsstore.SearchResult{
		result("leader", "Macro outlook", "rates and inflation", "coindesk", 0.9),
		result("fan", "Solana surge", "solana network activity", "decrypt", 0.7),
	}
	out, adj := e.PersonalizeRanking("u1", input)
	if out[0].Document.ID != "fan" {
		t.Errorf("got top %q, want fan", out[0].Document.ID)
	}
	if diff := out[0].Score - 0.91; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("score = %v, want 0.91", out[0].Score)
	}
	if adj.InterestBoosted != 1 {
		t.Errorf("interestBoosted = %d, want 1", adj.InterestBoosted)
	}
}

func TestPersonalizeRankingSourceAndMuted(t *testing.T) {
	e, _ := newTestEngine()
	sources := []string{"The Block"}
	muted := []string{"nft"}
	e.UpdatePreferences("u1", PreferenceUpdate{Sources: &sources, MutedTopics: &muted})

	input := []newsstore.SearchResult{
		result("pref", "Funding round", "startup raise", "The Block", 0.5),
		result("muted", "NFT mints", "nft marketplace volumes", "decrypt", 0.8),
	}
	out, adj := e.PersonalizeRanking("u1", input)
	if adj.SourceBoosted != 1 || adj.MutedPenalized != 1 {
		t.Errorf("adjustments = %+v, want one source boost and one mute", adj)
	}
	// 0.5*1.2 = 0.6 beats 0.8*0.5 = 0.4.
	if out[0].Document.ID != "pref" {
		t.Errorf("got top %q, want pref", out[0].Document.ID)
	}
}

func TestWeakInferredInterestDoesNotBoost(t *testing.T) {
	e, now := newTestEngine()
	e.RecordQuery("u1", "cardano")
	// Decay to 0.3 - 3*0.02 = 0.24, below the 0.3 match threshold.
	*now = now.Add(3 * 24 * time.Hour)
	e.RecordQuery("u1", "bitcoin")

	input := []newsstore.SearchResult{
		result("ada", "Cardano update", "cardano development", "decrypt", 0.5),
	}
	_, adj := e.PersonalizeRanking("u1", input)
	if adj.InterestBoosted != 0 {
		t.Errorf("weak interest boosted %d documents", adj.InterestBoosted)
	}
}

func TestExportReturnsCopy(t *testing.T) {
	e, _ := newTestEngine()
	e.RecordQuery("u1", "bitcoin")
	export := e.ExportUserData("u1")
	export.Preferences.Interests = append(export.Preferences.Interests, "tampered")
	export.InferredInterests[0].Weight = 99

	fresh := e.ExportUserData("u1")
	if len(fresh.Preferences.Interests) != 0 {
		t.Error("export aliases engine preferences")
	}
	if fresh.InferredInterests[0].Weight == 99 {
		t.Error("export aliases engine interests")
	}
}

func TestDeleteUser(t *testing.T) {
	e, _ := newTestEngine()
	e.RecordQuery("u1", "bitcoin")
	if !e.DeleteUser("u1") {
		t.Error("DeleteUser returned false for existing user")
	}
	if e.ExportUserData("u1") != nil {
		t.Error("profile survived deletion")
	}
	if e.DeleteUser("u1") {
		t.Error("DeleteUser returned true for missing user")
	}
	// Re-creation after erasure starts from scratch.
	e.RecordQuery("u1", "ethereum")
	export := e.ExportUserData("u1")
	for _, i := range export.InferredInterests {
		if i.Topic == "Bitcoin" {
			t.Error("erased interests leaked into new profile")
		}
	}
}

func TestUpdatePreferencesMerges(t *testing.T) {
	e, _ := newTestEngine()
	interests := []string{"DeFi"}
	e.UpdatePreferences("u1", PreferenceUpdate{Interests: &interests})
	level := LevelExpert
	profile := e.UpdatePreferences("u1", PreferenceUpdate{ReadingLevel: &level})

	if len(profile.Preferences.Interests) != 1 || profile.Preferences.Interests[0] != "DeFi" {
		t.Errorf("earlier update lost: %v", profile.Preferences.Interests)
	}
	if profile.Preferences.ReadingLevel != LevelExpert {
		t.Errorf("readingLevel = %q, want expert", profile.Preferences.ReadingLevel)
	}
	if profile.Preferences.ResponseStyle != StyleDetailed {
		t.Errorf("untouched field changed: %q", profile.Preferences.ResponseStyle)
	}
}

func TestSystemPromptModifier(t *testing.T) {
	e, _ := newTestEngine()
	if mod := e.SystemPromptModifier("nobody"); mod != "" {
		t.Errorf("modifier for unknown user: %q", mod)
	}
	level := LevelBeginner
	style := StyleConcise
	e.UpdatePreferences("u1", PreferenceUpdate{ReadingLevel: &level, ResponseStyle: &style})
	mod := e.SystemPromptModifier("u1")
	if mod == "" {
		t.Fatal("empty modifier for configured user")
	}
}

func TestSourceWeights(t *testing.T) {
	e, _ := newTestEngine()
	sources := []string{"CoinDesk"}
	e.UpdatePreferences("u1", PreferenceUpdate{Sources: &sources})
	weights := e.SourceWeights("u1")
	if weights["coindesk"] != 1.2 {
		t.Errorf("weights = %v, want coindesk 1.2", weights)
	}
}

func TestEngineSurvivesRestartWithDB(t *testing.T) {
	ctx := context.Background()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer database.Close()

	e1, err := NewEngineWithDB(ctx, Config{}, database)
	if err != nil {
		t.Fatalf("NewEngineWithDB: %v", err)
	}
	e1.RecordQuery("u1", "bitcoin etf")
	interests := []string{"DeFi"}
	e1.UpdatePreferences("u1", PreferenceUpdate{Interests: &interests})

	e2, err := NewEngineWithDB(ctx, Config{}, database)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	export := e2.ExportUserData("u1")
	if export == nil {
		t.Fatal("profile lost across restart")
	}
	if len(export.Preferences.Interests) != 1 || export.Preferences.Interests[0] != "DeFi" {
		t.Errorf("preferences lost: %v", export.Preferences.Interests)
	}
	var found bool
	for _, i := range export.InferredInterests {
		if i.Topic == "Bitcoin" {
			found = true
		}
	}
	if !found {
		t.Error("inferred interests lost across restart")
	}
}
