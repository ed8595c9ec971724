// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edfplus_test

import (
	"testing"
	"time"

	"github.com/OpenPSG/edfplus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAnnotations(t *testing.T) {
	for _, tc := range []struct {
		name string
		raw  string
		want []edfplus.Annotation
	}{
		{
			name: "time keeping",
			raw:  "+30\x14\x14\x00",
			want: []edfplus.Annotation{
				{Onset: 30 * time.Second, Texts: []string{""}},
			},
		},
		{
			name: "event with duration",
			raw:  "+1800.2\x1525.5\x14Apnea\x14\x00",
			want: []edfplus.Annotation{
				{Onset: 1800*time.Second + 200*time.Millisecond, Duration: 25*time.Second + 500*time.Millisecond, Texts: []string{"Apnea"}},
			},
		},
		{
			name: "multiple texts",
			raw:  "+180\x14Lights off\x14Close door\x14\x00",
			want: []edfplus.Annotation{
				{Onset: 180 * time.Second, Texts: []string{"Lights off", "Close door"}},
			},
		},
		{
			name: "negative onset",
			raw:  "-0.5\x14Pre-recording event\x14\x00",
			want: []edfplus.Annotation{
				{Onset: -500 * time.Millisecond, Texts: []string{"Pre-recording event"}},
			},
		},
		{
			name: "time keeping followed by event",
			raw:  "+30\x14\x14\x00+30.5\x14Sleep Stage N1\x14\x00",
			want: []edfplus.Annotation{
				{Onset: 30 * time.Second, Texts: []string{""}},
				{Onset: 30*time.Second + 500*time.Millisecond, Texts: []string{"Sleep Stage N1"}},
			},
		},
		{
			name: "trailing padding",
			raw:  "+0\x14\x14\x00\x00\x00\x00\x00\x00",
			want: []edfplus.Annotation{
				{Onset: 0, Texts: []string{""}},
			},
		},
		{
			name: "all padding",
			raw:  "\x00\x00\x00\x00",
			want: nil,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			anns, err := edfplus.DecodeAnnotations([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, anns)
		})
	}
}

func TestDecodeAnnotationsMalformed(t *testing.T) {
	for _, tc := range []struct {
		name string
		raw  string
	}{
		{name: "unterminated TAL", raw: "+30\x14Apnea\x14"},
		{name: "onset missing sign", raw: "30\x14Apnea\x14\x00"},
		{name: "onset not a number", raw: "+abc\x14Apnea\x14\x00"},
		{name: "duration not a number", raw: "+30\x15xyz\x14Apnea\x14\x00"},
		{name: "missing field separator", raw: "+30\x00"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := edfplus.DecodeAnnotations([]byte(tc.raw))
			require.ErrorIs(t, err, edfplus.ErrMalformedAnnotation)
		})
	}
}

func TestEncodeAnnotations(t *testing.T) {
	anns := []edfplus.Annotation{
		edfplus.TimeKeeping(30 * time.Second),
		{Onset: 30*time.Second + 500*time.Millisecond, Texts: []string{"Sleep Stage N1"}},
	}

	raw, err := edfplus.EncodeAnnotations(anns, 40)
	require.NoError(t, err)
	require.Len(t, raw, 40)

	want := "+30\x14\x14\x00+30.5\x14Sleep Stage N1\x14\x00"
	assert.Equal(t, want, string(raw[:len(want)]))
	for _, b := range raw[len(want):] {
		assert.Zero(t, b)
	}
}

func TestEncodeAnnotationsCapacityExceeded(t *testing.T) {
	anns := []edfplus.Annotation{
		{Onset: time.Second, Texts: []string{"An annotation that plainly does not fit"}},
	}
	_, err := edfplus.EncodeAnnotations(anns, 16)
	require.ErrorIs(t, err, edfplus.ErrSizeMismatch)
}

func TestEncodeAnnotationsRejectsFramingBytes(t *testing.T) {
	for _, text := range []string{"bad\x14text", "bad\x00text", "bad\x15text", "bad\x01text"} {
		anns := []edfplus.Annotation{{Onset: time.Second, Texts: []string{text}}}
		_, err := edfplus.EncodeAnnotations(anns, 64)
		require.ErrorIs(t, err, edfplus.ErrMalformedAnnotation, "text %q", text)
	}

	// Whitespace control characters are legal in annotation texts and
	// survive the round trip intact.
	anns := []edfplus.Annotation{{Onset: time.Second, Texts: []string{"line one\nline two"}}}
	raw, err := edfplus.EncodeAnnotations(anns, 64)
	require.NoError(t, err)
	decoded, err := edfplus.DecodeAnnotations(raw)
	require.NoError(t, err)
	assert.Equal(t, anns, decoded)
}

func TestEncodeAnnotationsRejectsNegativeDuration(t *testing.T) {
	anns := []edfplus.Annotation{{Onset: time.Second, Duration: -time.Second, Texts: []string{"Apnea"}}}
	_, err := edfplus.EncodeAnnotations(anns, 64)
	require.ErrorIs(t, err, edfplus.ErrMalformedAnnotation)
}

func TestDecodeAnnotationsExplicitZeroDuration(t *testing.T) {
	anns, err := edfplus.DecodeAnnotations([]byte("+30\x150\x14Apnea\x14\x00"))
	require.NoError(t, err)
	require.Len(t, anns, 1)
	assert.Zero(t, anns[0].Duration)

	// Zero durations re-encode without a duration suffix.
	raw, err := edfplus.EncodeAnnotations(anns, 16)
	require.NoError(t, err)
	want := "+30\x14Apnea\x14\x00"
	assert.Equal(t, want, string(raw[:len(want)]))
}

func TestAnnotationsRoundTrip(t *testing.T) {
	anns := []edfplus.Annotation{
		edfplus.TimeKeeping(90 * time.Second),
		{Onset: 91 * time.Second, Duration: 12 * time.Second, Texts: []string{"Obstructive apnea"}},
		{Onset: 95*time.Second + 250*time.Millisecond, Texts: []string{"Arousal", "EEG"}},
	}

	raw, err := edfplus.EncodeAnnotations(anns, 128)
	require.NoError(t, err)

	decoded, err := edfplus.DecodeAnnotations(raw)
	require.NoError(t, err)
	assert.Equal(t, anns, decoded)

	require.True(t, decoded[0].IsTimeKeeping())
	require.False(t, decoded[1].IsTimeKeeping())
}
