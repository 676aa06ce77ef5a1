package alarmhub

import (
	"encoding/json"
	"testing"

	"alarmbridge/lib/jsondoc"

	"github.com/stretchr/testify/require"
)

func TestUserName(t *testing.T) {
	cases := []struct {
		name string
		user User
		want string
	}{
		{name: "both names", user: User{FirstName: "Ada", LastName: "Lovelace"}, want: "Ada Lovelace"},
		{name: "single name account", user: User{FirstName: "Ada", LastName: "Front Desk", UseOnlyOneName: true}, want: "Front Desk"},
		{name: "first only", user: User{FirstName: "Ada"}, want: "Ada"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, c.user.Name())
		})
	}
}

func TestAccessPointSummaryDerivesPartitions(t *testing.T) {
	session, err := NewSession(Credentials{Username: "u", Password: "p"}, Options{})
	require.NoError(t, err)
	defer session.Close()
	session.SetState(stateSelectedSystem, "sys-1")
	session.SetState(stateSelectedUnit, "77")

	var doc jsondoc.Document
	err = json.Unmarshal([]byte(`{
		"id": "aps-1",
		"type": "users/access/access-point-collections-summary",
		"attributes": {
			"groupsAccessPointCollections": {
				"sys-1": [{"accessPointItems": [
					{"deviceId": 3, "hasAccess": true},
					{"deviceId": 4, "hasAccess": false},
					{"deviceId": 5, "hasAccess": true}
				]}],
				"sys-other": [{"accessPointItems": [
					{"deviceId": 9, "hasAccess": true}
				]}]
			}
		}
	}`), &doc)
	require.NoError(t, err)

	var summary AccessPointSummary
	require.NoError(t, summary.Fill(&doc, session))

	// ids combine the selected unit with the accessible device ids,
	// scoped to the selected system's group
	require.Equal(t, []string{"77-3", "77-5"}, summary.PartitionIDs)
}

func TestAccessPointSummaryUnknownGroup(t *testing.T) {
	session, err := NewSession(Credentials{Username: "u", Password: "p"}, Options{})
	require.NoError(t, err)
	defer session.Close()
	session.SetState(stateSelectedSystem, "sys-1")

	var doc jsondoc.Document
	err = json.Unmarshal([]byte(`{
		"id": "aps-1",
		"type": "users/access/access-point-collections-summary",
		"attributes": {"groupsAccessPointCollections": {}}
	}`), &doc)
	require.NoError(t, err)

	var summary AccessPointSummary
	require.NoError(t, summary.Fill(&doc, session))
	require.NotNil(t, summary.PartitionIDs)
	require.Empty(t, summary.PartitionIDs)
}
