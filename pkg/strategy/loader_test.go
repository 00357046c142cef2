package strategy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type LoaderTestSuite struct {
	suite.Suite
}

func TestLoaderSuite(t *testing.T) {
	suite.Run(t, new(LoaderTestSuite))
}

const rsiStrategyYAML = `
id: rsi-london
name: RSI London Reversal
version: 1.0.0
direction: long
active: true
symbols: [EURUSD, GBPUSD]
rules:
  - type: technical
    condition: rsi_oversold
    parameters:
      threshold: 30
  - type: session
    condition: london
risk_management:
  stop_loss_pips: 20
  take_profit_pips: 40
  position_sizing: fixed_risk
  risk_percent: 1
`

const rsiStrategyJSON = `{
  "id": "rsi-json",
  "name": "RSI JSON",
  "active": true,
  "rules": [{"type": "technical", "condition": "above_ema", "parameters": {"period": 200}}],
  "risk_management": {"stop_loss_pips": 15, "take_profit_pips": 30}
}`

func (suite *LoaderTestSuite) TestLoadYAML() {
	definition, err := LoadBytes([]byte(rsiStrategyYAML), FormatYAML)
	suite.Require().NoError(err)

	suite.Equal("rsi-london", definition.ID)
	suite.Equal(types.DirectionLong, definition.TradeDirection())
	suite.Len(definition.Rules, 2)
	suite.Equal(types.RuleTypeSession, definition.Rules[1].Type)
	suite.Equal(30, definition.Rules[0].Parameters["threshold"])
	suite.Equal(20.0, definition.Risk.StopLossPips)
	suite.Equal(types.PositionSizingFixedRisk, definition.Risk.PositionSizing)
	suite.True(definition.Monitors("gbpusd"))
	suite.False(definition.Monitors("USDJPY"))
}

func (suite *LoaderTestSuite) TestLoadJSON() {
	definition, err := LoadBytes([]byte(rsiStrategyJSON), FormatJSON)
	suite.Require().NoError(err)

	suite.Equal("rsi-json", definition.ID)
	suite.Equal(200.0, definition.Rules[0].Parameters["period"])
	suite.Empty(definition.Symbols)
}

func (suite *LoaderTestSuite) TestInvalidDefinitions() {
	cases := map[string]string{
		"missing rules":     "id: a\nname: a\nrisk_management: {stop_loss_pips: 1, take_profit_pips: 1}\n",
		"zero stop":         "id: a\nname: a\nrules: [{type: session, condition: london}]\nrisk_management: {stop_loss_pips: 0, take_profit_pips: 1}\n",
		"bad direction":     "id: a\nname: a\ndirection: sideways\nrules: [{type: session, condition: london}]\nrisk_management: {stop_loss_pips: 1, take_profit_pips: 1}\n",
		"rule without name": "id: a\nname: a\nrules: [{type: session}]\nrisk_management: {stop_loss_pips: 1, take_profit_pips: 1}\n",
	}

	for name, body := range cases {
		_, err := LoadBytes([]byte(body), FormatYAML)
		suite.Error(err, name)
		suite.True(errors.IsConfigurationError(err), name)
	}

	_, err := LoadBytes([]byte("id: [unclosed"), FormatYAML)
	suite.Equal(errors.ErrCodeMalformedStrategy, errors.GetCode(err))

	_, err = LoadBytes([]byte(`{"id":"a","unknown":1}`), FormatJSON)
	suite.Equal(errors.ErrCodeMalformedStrategy, errors.GetCode(err))
}

func (suite *LoaderTestSuite) TestLoadFileAndDir() {
	dir := suite.T().TempDir()
	suite.Require().NoError(os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(rsiStrategyYAML), 0600))
	suite.Require().NoError(os.WriteFile(filepath.Join(dir, "a.json"), []byte(rsiStrategyJSON), 0600))
	suite.Require().NoError(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0600))

	definition, err := LoadFile(filepath.Join(dir, "b.yaml"))
	suite.Require().NoError(err)
	suite.Equal("rsi-london", definition.ID)

	definitions, err := LoadDir(dir)
	suite.Require().NoError(err)
	suite.Require().Len(definitions, 2)
	suite.Equal("rsi-json", definitions[0].ID)
	suite.Equal("rsi-london", definitions[1].ID)

	_, err = LoadFile(filepath.Join(dir, "notes.txt"))
	suite.Equal(errors.ErrCodeMalformedStrategy, errors.GetCode(err))

	suite.Require().NoError(os.WriteFile(filepath.Join(dir, "c.yml"), []byte(rsiStrategyYAML), 0600))
	_, err = LoadDir(dir)
	suite.Error(err)
	suite.Contains(err.Error(), "duplicate strategy id")
}

func (suite *LoaderTestSuite) TestDefinitionSchema() {
	schema, err := DefinitionSchema()
	suite.Require().NoError(err)
	suite.Contains(schema, "risk_management")
	suite.Contains(schema, "rules")
}
