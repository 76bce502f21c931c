package fbref

import (
	"fmt"
	"strings"
)

const (
	NA            = "N/a"
	PlayerCol     = "Player"
	FirstNameCol  = "First Name"
	MinutesRawKey = "Minutes_raw"
)

// Column maps a display name to the data-stat attribute of its cell.
type Column struct {
	Name     string
	DataStat string
}

// Category is one fbref stats page and the table it carries.
type Category struct {
	Name    string
	Page    string
	Columns []Column
}

func (c Category) TableID() string { return "stats_" + c.Name }

// URL builds the competition page, e.g. base/en/comps/9/shooting/Premier-League-Stats.
func (c Category) URL(base, compID, compSlug string) string {
	return fmt.Sprintf("%s/en/comps/%s/%s/%s-Stats", strings.TrimRight(base, "/"), compID, c.Page, compSlug)
}

var categories = []Category{
	{Name: "standard", Page: "stats", Columns: []Column{
		{"Nation", "nationality"}, {"Team", "team"}, {"Position", "position"}, {"Age", "age"},
		{"Matches Played", "games"}, {"Starts", "games_starts"}, {"Minutes", "minutes"},
		{"Goals", "goals"}, {"Assists", "assists"}, {"Yellow Cards", "cards_yellow"},
		{"Red Cards", "cards_red"}, {"xG", "xg"}, {"xAG", "xg_assist"},
		{"PrgC", "progressive_carries"}, {"PrgP", "progressive_passes"}, {"PrgR", "progressive_passes_received"},
		{"Gls/90", "goals_per90"}, {"Ast/90", "assists_per90"}, {"xG/90", "xg_per90"}, {"xAG/90", "xg_assist_per90"},
	}},
	{Name: "keeper", Page: "keepers", Columns: []Column{
		{"GA90", "gk_goals_against_per90"}, {"Save%", "gk_save_pct"}, {"CS%", "gk_clean_sheets_pct"},
		{"PK Save%", "gk_pens_save_pct"},
	}},
	{Name: "keeper_adv", Page: "keepersadv"},
	{Name: "shooting", Page: "shooting", Columns: []Column{
		{"SoT%", "shots_on_target_pct"}, {"SoT/90", "shots_on_target_per90"},
		{"G/Sh", "goals_per_shot"}, {"Dist", "average_shot_distance"},
	}},
	{Name: "passing", Page: "passing", Columns: []Column{
		{"Cmp", "passes_completed"}, {"Cmp%", "passes_pct"}, {"TotDist", "passes_total_distance"},
		{"KP", "assisted_shots"}, {"1/3", "passes_into_final_third"}, {"PPA", "passes_into_penalty_area"},
		{"CrsPA", "crosses_into_penalty_area"}, {"PrgP", "progressive_passes"},
		{"Short Cmp%", "passes_pct_short"}, {"Medium Cmp%", "passes_pct_medium"}, {"Long Cmp%", "passes_pct_long"},
	}},
	{Name: "passing_types", Page: "passing_types"},
	{Name: "gca", Page: "gca", Columns: []Column{
		{"SCA", "sca"}, {"SCA90", "sca_per90"}, {"GCA", "gca"}, {"GCA90", "gca_per90"},
	}},
	{Name: "defense", Page: "defense", Columns: []Column{
		{"Tkl", "tackles"}, {"TklW", "tackles_won"}, {"Att", "challenges"}, {"Lost", "challenges_lost"},
		{"Blocks", "blocks"}, {"Sh", "blocked_shots"}, {"Pass", "blocked_passes"}, {"Int", "interceptions"},
	}},
	{Name: "possession", Page: "possession", Columns: []Column{
		{"Touches", "touches"}, {"Def Pen", "touches_def_pen_area"}, {"Def 3rd", "touches_def_3rd"},
		{"Mid 3rd", "touches_mid_3rd"}, {"Att 3rd", "touches_att_3rd"}, {"Att Pen", "touches_att_pen_area"},
		{"Att (Take-Ons)", "take_ons"}, {"Succ% (Take-Ons)", "take_ons_won_pct"},
		{"Tkld% (Take-Ons)", "take_ons_tackled_pct"}, {"Carries", "carries"},
		{"PrgDist", "carries_progressive_distance"}, {"ProgC", "progressive_carries"},
		{"1/3 (Carries)", "carries_into_final_third"}, {"CPA", "carries_into_penalty_area"},
		{"Mis", "miscontrols"}, {"Dis", "dispossessed"}, {"Rec", "passes_received"},
		{"PrgR", "progressive_passes_received"},
	}},
	{Name: "misc", Page: "misc", Columns: []Column{
		{"Fls", "fouls"}, {"Fld", "fouled"}, {"Off", "offsides"}, {"Crs", "crosses"},
		{"Recov", "ball_recoveries"}, {"Won (Aerial)", "aerials_won"},
		{"Lost (Aerial)", "aerials_lost"}, {"Won% (Aerial)", "aerials_won_pct"},
	}},
}

// Categories returns every stats page in scrape order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// CategoryByName looks a category up by its short name.
func CategoryByName(name string) (Category, bool) {
	for _, c := range categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// Columns is the results.csv header: Player, First Name, then each display
// name once, in category order.
func Columns() []string {
	seen := map[string]struct{}{}
	out := []string{PlayerCol, FirstNameCol}
	for _, c := range categories {
		for _, col := range c.Columns {
			if _, ok := seen[col.Name]; ok {
				continue
			}
			seen[col.Name] = struct{}{}
			out = append(out, col.Name)
		}
	}
	return out
}
