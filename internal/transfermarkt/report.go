package transfermarkt

import (
	"fmt"
	"io"
	"strconv"

	"github.com/tyler180/epl-player-stats/internal/dataset"
	"github.com/tyler180/epl-player-stats/internal/frame"
)

const ValueCol = "Transfer_Value_Millions_EUR"

// Eligible keeps players with strictly more than minMinutes.
func Eligible(d *dataset.Dataset, minMinutes float64) *dataset.Dataset {
	return d.Filter(func(r int) bool { return d.Minutes[r] > minMinutes })
}

// ValuesFrame is transfer_values.csv. Unknown values are empty cells.
func ValuesFrame(d *dataset.Dataset, values map[string]*float64) *frame.Frame {
	header := []string{
		dataset.PlayerCol, dataset.FirstNameCol, dataset.TeamCol,
		dataset.PositionCol, dataset.MinutesCol, ValueCol,
	}
	rows := make([][]string, 0, d.Len())
	for r := 0; r < d.Len(); r++ {
		f := d.Frame
		val := ""
		if v := values[d.Player(r)]; v != nil {
			val = strconv.FormatFloat(*v, 'f', 2, 64)
		}
		rows = append(rows, []string{
			d.Player(r), f.Get(r, dataset.FirstNameCol), d.Team(r),
			f.Get(r, dataset.PositionCol), f.Get(r, dataset.MinutesCol), val,
		})
	}
	return frame.New(header, rows)
}

// WriteExplanation renders transfer_value_explanation.txt.
func WriteExplanation(w io.Writer) error {
	_, err := fmt.Fprint(w, explanation)
	return err
}

const explanation = `=== Estimating Player Transfer Values ===

1. Feature selection:
- Age: younger players with high potential usually carry higher values.
- Position: forwards and attacking midfielders are priced above defenders and goalkeepers.
- Minutes: regular starters are worth more than squad players.
- Goals, Assists, xG: attacking output is the strongest price signal for forwards.
- Tkl, PrgP: defensive work and progressive passing capture value in midfield and defence.
- Save%: goalkeeper quality.
- Nation and Team: league profile and club stature shift prices.

2. Model choice:
- Random Forest: handles non-linear relationships and mixed feature types, robust to outliers.
- Gradient Boosting (XGBoost or LightGBM): usually the most accurate on tabular data.
- Linear Regression: a baseline to compare against.

3. Process:
- Encode categorical features (Position, Nation, Team) and scale numeric ones.
- Split into training and test sets (80/20).
- Train each model on the training set with market values from transfer_values.csv as the target.
- Evaluate with RMSE and R2 on the test set.

4. Notes:
- Random Forest and Gradient Boosting are expected to beat Linear Regression because market value depends on interactions between age, position and output.
- Contract length, injuries and commercial appeal are missing from the data and limit accuracy.
`
